package request

import (
	"maps"
	"strings"
	"unicode"
)

// FindRecordOptions configures FindRecord.
type FindRecordOptions struct {
	Reload           bool
	BackgroundReload bool
	Include          []string
	AdapterOptions   map[string]any
}

func (o FindRecordOptions) toMap() map[string]any {
	m := map[string]any{}
	if len(o.Include) > 0 {
		m["include"] = strings.Join(o.Include, ",")
	}
	if len(o.AdapterOptions) > 0 {
		m["adapterOptions"] = maps.Clone(o.AdapterOptions)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// FindRecord builds a request for the record of the given type and id.
func FindRecord(resourceType, id string, opts FindRecordOptions) (*Request, error) {
	if strings.TrimSpace(resourceType) == "" {
		return nil, ErrMissingType
	}
	if strings.TrimSpace(id) == "" {
		return nil, ErrMissingID
	}
	return FindRecordByRef(Ref{Type: resourceType, ID: id}, opts)
}

// FindRecordByRef builds a find request from an existing reference. The
// reference must carry a type and either an id or a lid.
func FindRecordByRef(ref Ref, opts FindRecordOptions) (*Request, error) {
	if ref.Type == "" {
		return nil, ErrMissingType
	}
	if ref.ID == "" && ref.LID == "" {
		return nil, ErrMissingID
	}
	ref.Type = NormalizeType(ref.Type)
	return &Request{
		Op:      OpFindRecord,
		Method:  "GET",
		Records: []Ref{ref},
		Data: Data{
			Record:  &ref,
			Options: opts.toMap(),
		},
		CacheOptions: CacheOptions{
			Reload:           opts.Reload,
			BackgroundReload: opts.BackgroundReload,
		},
	}, nil
}

// Query builds a request for the collection of records matching query.
func Query(resourceType string, query map[string]any, options map[string]any) (*Request, error) {
	return buildQuery(OpQuery, resourceType, query, options)
}

// QueryRecord builds a request for the single record matching query.
func QueryRecord(resourceType string, query map[string]any, options map[string]any) (*Request, error) {
	return buildQuery(OpQueryRecord, resourceType, query, options)
}

func buildQuery(op Op, resourceType string, query map[string]any, options map[string]any) (*Request, error) {
	if strings.TrimSpace(resourceType) == "" {
		return nil, ErrMissingType
	}
	if query == nil {
		return nil, ErrMissingQuery
	}
	return &Request{
		Op:     op,
		Method: "GET",
		Data: Data{
			Type:    NormalizeType(resourceType),
			Query:   maps.Clone(query),
			Options: maps.Clone(options),
		},
	}, nil
}

// CreateRecord builds a request that commits a new record.
func CreateRecord(ref Ref) (*Request, error) {
	return buildMutation(OpCreateRecord, "POST", ref)
}

// UpdateRecord builds a request that commits changes to an existing record.
func UpdateRecord(ref Ref) (*Request, error) {
	return buildMutation(OpUpdateRecord, "PATCH", ref)
}

// DeleteRecord builds a request that deletes a record.
func DeleteRecord(ref Ref) (*Request, error) {
	return buildMutation(OpDeleteRecord, "DELETE", ref)
}

func buildMutation(op Op, method string, ref Ref) (*Request, error) {
	if ref.Type == "" {
		return nil, ErrMissingType
	}
	if ref.ID == "" && ref.LID == "" {
		return nil, ErrMissingID
	}
	ref.Type = NormalizeType(ref.Type)
	return &Request{
		Op:      op,
		Method:  method,
		Records: []Ref{ref},
		Data:    Data{Record: &ref},
	}, nil
}

// NormalizeType dasherizes a resource type: "blogPost" and "blog_post" both
// become "blog-post".
func NormalizeType(t string) string {
	var b strings.Builder
	b.Grow(len(t) + 4)
	for i, r := range strings.TrimSpace(t) {
		switch {
		case r == '_' || r == ' ':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
