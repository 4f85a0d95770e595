package pathstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dgallion1/docoutline/internal/outline"
)

const (
	outlinePrefix = "docoutline/outlines"
	hashPrefix    = "docoutline/hashes"
)

// StoredOutline is the persisted record for one document.
type StoredOutline struct {
	DocID       string          `json:"doc_id"`
	Filename    string          `json:"filename"`
	ContentHash string          `json:"content_hash"`
	Pages       int             `json:"pages"`
	StoredAt    time.Time       `json:"stored_at"`
	Result      *outline.Result `json:"result"`
}

func OutlineKey(docID string) string {
	return outlinePrefix + "/" + docID
}

func HashKey(hash string) string {
	return hashPrefix + "/" + hash
}

// SaveOutline writes the outline record and its content-hash index entry.
func (c *Client) SaveOutline(ctx context.Context, rec StoredOutline) error {
	if err := c.PutNode(ctx, OutlineKey(rec.DocID), NodeRequest{
		Value:      rec,
		MergeMode:  "replace",
		MemoryType: "document_outline",
		Source:     "docoutline",
	}); err != nil {
		return fmt.Errorf("store outline %s: %w", rec.DocID, err)
	}
	if rec.ContentHash == "" {
		return nil
	}
	if err := c.PutNode(ctx, HashKey(rec.ContentHash), NodeRequest{
		Value:      map[string]string{"doc_id": rec.DocID},
		MergeMode:  "replace",
		MemoryType: "content_hash",
		Source:     "docoutline",
	}); err != nil {
		return fmt.Errorf("store hash index %s: %w", rec.ContentHash, err)
	}
	return nil
}

// LoadOutline fetches a stored outline. A missing record returns nil, nil.
func (c *Client) LoadOutline(ctx context.Context, docID string) (*StoredOutline, error) {
	node, err := c.GetNode(ctx, OutlineKey(docID))
	if err != nil || node == nil {
		return nil, err
	}
	var rec StoredOutline
	if err := json.Unmarshal(node.Value, &rec); err != nil {
		return nil, fmt.Errorf("decode outline %s: %w", docID, err)
	}
	return &rec, nil
}

// LookupHash returns the document id previously stored for a content hash.
func (c *Client) LookupHash(ctx context.Context, hash string) (string, bool, error) {
	node, err := c.GetNode(ctx, HashKey(hash))
	if err != nil || node == nil {
		return "", false, err
	}
	var v struct {
		DocID string `json:"doc_id"`
	}
	if err := json.Unmarshal(node.Value, &v); err != nil {
		return "", false, fmt.Errorf("decode hash index %s: %w", hash, err)
	}
	return v.DocID, v.DocID != "", nil
}

// ListOutlines returns the ids of stored outlines.
func (c *Client) ListOutlines(ctx context.Context, limit int) ([]string, error) {
	nodes, err := c.ListChildren(ctx, outlinePrefix, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, strings.TrimPrefix(n.Key, outlinePrefix+"/"))
	}
	return ids, nil
}

// DeleteOutline removes an outline and, when known, its hash index entry.
func (c *Client) DeleteOutline(ctx context.Context, docID string) error {
	rec, err := c.LoadOutline(ctx, docID)
	if err != nil {
		return err
	}
	if rec != nil && rec.ContentHash != "" {
		if err := c.DeleteNode(ctx, HashKey(rec.ContentHash), false); err != nil {
			return err
		}
	}
	return c.DeleteNode(ctx, OutlineKey(docID), false)
}
