// v0
// internal/catalog/docs.go
package catalog

import "modelmarket/internal/models"

// AddDocumentation stores a new document for the model.
func (c *Catalog) AddDocumentation(modelID, authorID, content string, tags []string) (models.Documentation, error) {
	if err := requireIDs("modelId", modelID, "authorId", authorID, "content", content); err != nil {
		return models.Documentation{}, err
	}
	doc := models.Documentation{
		ModelID:   modelID,
		AuthorID:  authorID,
		Content:   content,
		Tags:      append([]string(nil), tags...),
		Timestamp: c.clock().Unix(),
		Comments:  []models.DocComment{},
	}
	c.docsMu.Lock()
	c.docs[modelID] = append(c.docs[modelID], doc)
	c.docsMu.Unlock()
	return doc.Clone(), nil
}

// UpvoteDocumentation upvotes the model's latest document and returns its author.
func (c *Catalog) UpvoteDocumentation(modelID, voterID string) (string, error) {
	if err := requireIDs("modelId", modelID, "voterId", voterID); err != nil {
		return "", err
	}
	c.docsMu.Lock()
	defer c.docsMu.Unlock()
	docs := c.docs[modelID]
	if len(docs) == 0 {
		return "", ErrNotFound
	}
	latest := &docs[len(docs)-1]
	latest.Upvotes++
	return latest.AuthorID, nil
}

// AddDocComment attaches a comment to the model's latest document.
func (c *Catalog) AddDocComment(modelID, userID, comment string) error {
	if err := requireIDs("modelId", modelID, "userId", userID, "comment", comment); err != nil {
		return err
	}
	c.docsMu.Lock()
	defer c.docsMu.Unlock()
	docs := c.docs[modelID]
	if len(docs) == 0 {
		return ErrNotFound
	}
	latest := &docs[len(docs)-1]
	latest.Comments = append(latest.Comments, models.DocComment{
		UserID:    userID,
		Comment:   comment,
		Timestamp: c.clock().Unix(),
	})
	return nil
}

func (c *Catalog) ModelDocs(modelID string) []models.Documentation {
	c.docsMu.RLock()
	defer c.docsMu.RUnlock()
	docs := c.docs[modelID]
	out := make([]models.Documentation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.Clone())
	}
	return out
}
