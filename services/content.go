package services

import (
	"context"

	"github.com/jrsteele09/go-services-client/entities"
	"github.com/jrsteele09/go-services-client/envelope"
)

func (c *Client) GetNode(ctx context.Context, nid int) (*entities.Node, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	data, err := c.connectAndCall(ctx, OpNodeGet, map[string]any{"nid": nid})
	if err != nil {
		return nil, &FetchError{Op: OpNodeGet, Err: err}
	}
	node, err := entities.Unserialize[entities.Node](data)
	if err != nil {
		return nil, &FetchError{Op: OpNodeGet, Err: err}
	}
	return node, nil
}

// SaveNode creates or updates a node and returns its nid. A zero NID creates.
func (c *Client) SaveNode(ctx context.Context, node *entities.Node) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	payload, err := serializeEscaped(node)
	if err != nil {
		return 0, &SaveError{Op: OpNodeSave, Err: err}
	}
	data, err := c.connectAndCall(ctx, OpNodeSave, map[string]any{"node": payload})
	if err != nil {
		return 0, &SaveError{Op: OpNodeSave, Err: err}
	}
	nid, err := envelope.Int(data)
	if err != nil {
		return 0, &SaveError{Op: OpNodeSave, Err: err}
	}
	return nid, nil
}

func (c *Client) GetComment(ctx context.Context, cid int) (*entities.Comment, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	data, err := c.connectAndCall(ctx, OpCommentLoad, map[string]any{"cid": cid})
	if err != nil {
		return nil, &FetchError{Op: OpCommentLoad, Err: err}
	}
	comment, err := entities.Unserialize[entities.Comment](data)
	if err != nil {
		return nil, &FetchError{Op: OpCommentLoad, Err: err}
	}
	return comment, nil
}

// SaveComment returns the comment id. Sites that answer with a boolean yield 1 or 0.
func (c *Client) SaveComment(ctx context.Context, comment *entities.Comment) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	payload, err := serializeEscaped(comment)
	if err != nil {
		return 0, &SaveError{Op: OpCommentSave, Err: err}
	}
	data, err := c.connectAndCall(ctx, OpCommentSave, map[string]any{"comment": payload})
	if err != nil {
		return 0, &SaveError{Op: OpCommentSave, Err: err}
	}
	cid, err := envelope.Int(data)
	if err != nil {
		return 0, &SaveError{Op: OpCommentSave, Err: err}
	}
	return cid, nil
}

// GetComments lists a node's comments. start and count are sent only when both
// are positive.
func (c *Client) GetComments(ctx context.Context, nid, start, count int) ([]*entities.Comment, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	params := map[string]any{"nid": nid}
	if start > 0 && count > 0 {
		params["start"] = start
		params["count"] = count
	}
	data, err := c.connectAndCall(ctx, OpCommentLoadNode, params)
	if err != nil {
		return nil, &FetchError{Op: OpCommentLoadNode, Err: err}
	}
	comments, err := entities.UnserializeList[entities.Comment](data)
	if err != nil {
		return nil, &FetchError{Op: OpCommentLoadNode, Err: err}
	}
	return comments, nil
}

// GetNodeView runs a node view. args is omitted when empty; offset and limit are
// sent only when both are positive.
func (c *Client) GetNodeView(ctx context.Context, viewName, args string, offset, limit int) ([]*entities.Node, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	params := map[string]any{"view_name": viewName}
	if args != "" {
		params["args"] = args
	}
	if offset > 0 && limit > 0 {
		params["offset"] = offset
		params["limit"] = limit
	}
	data, err := c.connectAndCall(ctx, OpViewsGet, params)
	if err != nil {
		return nil, &FetchError{Op: OpViewsGet, Err: err}
	}
	nodes, err := entities.UnserializeList[entities.Node](data)
	if err != nil {
		return nil, &FetchError{Op: OpViewsGet, Err: err}
	}
	return nodes, nil
}

// GetTermView runs a view whose rows are taxonomy terms.
func (c *Client) GetTermView(ctx context.Context, viewName string) ([]*entities.TaxonomyTerm, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.terms(ctx, OpViewsGet, map[string]any{"view_name": viewName})
}

// GetCategoryList returns the terms of the category vocabulary.
func (c *Client) GetCategoryList(ctx context.Context) ([]*entities.TaxonomyTerm, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	return c.terms(ctx, OpTaxonomyDictionary, map[string]any{"vid": categoryVocabularyID})
}

func (c *Client) terms(ctx context.Context, operation string, params map[string]any) ([]*entities.TaxonomyTerm, error) {
	data, err := c.connectAndCall(ctx, operation, params)
	if err != nil {
		return nil, &FetchError{Op: operation, Err: err}
	}
	terms, err := entities.UnserializeList[entities.TaxonomyTerm](data)
	if err != nil {
		return nil, &FetchError{Op: operation, Err: err}
	}
	return terms, nil
}
