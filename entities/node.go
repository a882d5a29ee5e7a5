package entities

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
)

const fieldPrefix = "field_"

// Field holds the values of one custom node field. Each value is a column map,
// e.g. {"value": "..."} or {"fid": "12", "list": "1"}.
type Field struct {
	Values []map[string]any
}

// Node is a content item. Custom fields travel as top-level "field_*" keys and are
// collected into Fields on decode.
type Node struct {
	NID          Int                  `json:"nid,omitempty"`
	VID          Int                  `json:"vid,omitempty"`
	Type         string               `json:"type"`
	Language     string               `json:"language,omitempty"`
	Title        string               `json:"title"`
	Body         string               `json:"body,omitempty"`
	Teaser       string               `json:"teaser,omitempty"`
	Format       Int                  `json:"format,omitempty"`
	UID          Int                  `json:"uid,omitempty"`
	Name         string               `json:"name,omitempty"`
	Status       Bool                 `json:"status"`
	Promote      Bool                 `json:"promote"`
	Sticky       Bool                 `json:"sticky"`
	Comment      Int                  `json:"comment,omitempty"`
	CommentCount Int                  `json:"comment_count,omitempty"`
	Created      UnixTime             `json:"created,omitempty"`
	Changed      UnixTime             `json:"changed,omitempty"`
	Picture      string               `json:"picture,omitempty"`
	Taxonomy     PHPMap[TaxonomyTerm] `json:"taxonomy,omitempty"`
	Fields       map[string]Field     `json:"-"`
}

type nodeAlias Node

func (n *Node) UnmarshalJSON(b []byte) error {
	var alias nodeAlias
	if err := json.Unmarshal(b, &alias); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		if !strings.HasPrefix(key, fieldPrefix) {
			continue
		}
		values, ok := decodeFieldValues(value)
		if !ok {
			continue
		}
		if alias.Fields == nil {
			alias.Fields = make(map[string]Field)
		}
		alias.Fields[key] = Field{Values: values}
	}

	*n = Node(alias)
	return nil
}

// MarshalJSON writes each field as {"0": {...}, "1": {...}}, the keyed form the
// remote node.save expects.
func (n Node) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(nodeAlias(n))
	if err != nil {
		return nil, err
	}
	if len(n.Fields) == 0 {
		return base, nil
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(base, &out); err != nil {
		return nil, err
	}
	for name, field := range n.Fields {
		keyed := make(map[string]map[string]any, len(field.Values))
		for i, v := range field.Values {
			keyed[strconv.Itoa(i)] = v
		}
		encoded, err := json.Marshal(keyed)
		if err != nil {
			return nil, err
		}
		out[name] = encoded
	}
	return json.Marshal(out)
}

// decodeFieldValues accepts a list of column maps or an object of them keyed by delta.
func decodeFieldValues(raw json.RawMessage) ([]map[string]any, bool) {
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	var keyed map[string]map[string]any
	if err := json.Unmarshal(raw, &keyed); err != nil {
		return nil, false
	}
	keys := make([]string, 0, len(keyed))
	for k := range keyed {
		keys = append(keys, k)
	}
	sortNumeric(keys)
	values := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		values = append(values, keyed[k])
	}
	return values, true
}

func sortNumeric(keys []string) {
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA != nil || errB != nil {
			return keys[i] < keys[j]
		}
		return a < b
	})
}
