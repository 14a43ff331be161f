package promptsync

import (
	"sort"
	"time"
)

// Entity codecs. Encoding is total; decoding is partial and lenient: a
// document missing a required field or carrying a value of the wrong shape
// decodes to (zero, false) and is silently dropped from result sets instead
// of surfacing an error. Partially written documents therefore never break a
// listing.

func encodeTemplate(t *Template) Document {
	doc := Document{
		"id":          t.ID,
		"owner_id":    t.OwnerID,
		"title":       t.Title,
		"body":        t.Body,
		"description": t.Description,
		"category_id": t.CategoryID,
		"task_id":     t.TaskID,
		"tags":        encodeTags(t.Tags),
		"variables":   encodeVariables(t.Variables),
		"is_public":   t.IsPublic,
		"folder_id":   t.FolderID,
		"source_type": string(t.SourceType),
		"created_at":  t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.OriginalTemplateID != "" {
		doc["original_template_id"] = t.OriginalTemplateID
	}
	if t.SampleImageURL != "" {
		doc["sample_image_url"] = t.SampleImageURL
	}
	if t.FullImageURL != "" {
		doc["full_image_url"] = t.FullImageURL
	}
	return doc
}

func decodeTemplate(doc Document) (*Template, bool) {
	id, ok := docString(doc, "id")
	if !ok || id == "" {
		return nil, false
	}
	ownerID, ok := docString(doc, "owner_id")
	if !ok || ownerID == "" {
		return nil, false
	}
	title, ok := docString(doc, "title")
	if !ok {
		return nil, false
	}
	body, ok := docString(doc, "body")
	if !ok {
		return nil, false
	}
	createdAt, ok := docTime(doc, "created_at")
	if !ok {
		return nil, false
	}
	updatedAt, ok := docTime(doc, "updated_at")
	if !ok {
		updatedAt = createdAt
	}
	isPublic, ok := docBool(doc, "is_public")
	if !ok {
		return nil, false
	}

	t := &Template{
		ID:        id,
		OwnerID:   ownerID,
		Title:     title,
		Body:      body,
		IsPublic:  isPublic,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	t.Description, _ = docString(doc, "description")
	t.CategoryID, _ = docString(doc, "category_id")
	t.TaskID, _ = docString(doc, "task_id")
	t.FolderID, _ = docString(doc, "folder_id")
	t.OriginalTemplateID, _ = docString(doc, "original_template_id")
	t.SampleImageURL, _ = docString(doc, "sample_image_url")
	t.FullImageURL, _ = docString(doc, "full_image_url")
	if st, ok := docString(doc, "source_type"); ok && st != "" {
		t.SourceType = SourceType(st)
	} else {
		t.SourceType = SourceTypeManual
	}
	t.Tags = docStrings(doc, "tags")
	t.Variables = decodeVariables(doc["variables"])
	return t, true
}

func encodeCatalogItem(item *CatalogItem) Document {
	doc := Document{
		"id":          item.ID,
		"author_id":   item.AuthorID,
		"title":       item.Title,
		"body":        item.Body,
		"description": item.Description,
		"category_id": item.CategoryID,
		"task_id":     item.TaskID,
		"tags":        encodeTags(item.Tags),
		"like_count":  item.LikeCount,
		"use_count":   item.UseCount,
		"created_at":  item.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at":  item.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if item.ModelType != "" {
		doc["model_type"] = item.ModelType
	}
	if len(item.Variables) > 0 {
		doc["variables"] = encodeVariables(item.Variables)
	}
	return doc
}

func decodeCatalogItem(kind CatalogKind, doc Document) (*CatalogItem, bool) {
	id, ok := docString(doc, "id")
	if !ok || id == "" {
		return nil, false
	}
	authorID, ok := docString(doc, "author_id")
	if !ok || authorID == "" {
		return nil, false
	}
	title, ok := docString(doc, "title")
	if !ok {
		return nil, false
	}
	body, ok := docString(doc, "body")
	if !ok {
		return nil, false
	}
	createdAt, ok := docTime(doc, "created_at")
	if !ok {
		return nil, false
	}
	updatedAt, ok := docTime(doc, "updated_at")
	if !ok {
		updatedAt = createdAt
	}

	item := &CatalogItem{
		ID:        id,
		Kind:      kind,
		AuthorID:  authorID,
		Title:     title,
		Body:      body,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
	item.Description, _ = docString(doc, "description")
	item.CategoryID, _ = docString(doc, "category_id")
	item.TaskID, _ = docString(doc, "task_id")
	item.ModelType, _ = docString(doc, "model_type")
	item.Tags = docStrings(doc, "tags")
	item.Variables = decodeVariables(doc["variables"])
	item.LikeCount, _ = docInt(doc, "like_count")
	item.UseCount, _ = docInt(doc, "use_count")
	return item, true
}

func encodeLike(l *Like) Document {
	return Document{
		"user_id":    l.UserID,
		"item_id":    l.ItemID,
		"created_at": l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decodeLike(doc Document) (*Like, bool) {
	userID, ok := docString(doc, "user_id")
	if !ok || userID == "" {
		return nil, false
	}
	itemID, ok := docString(doc, "item_id")
	if !ok || itemID == "" {
		return nil, false
	}
	l := &Like{UserID: userID, ItemID: itemID}
	l.CreatedAt, _ = docTime(doc, "created_at")
	return l, true
}

func decodeUsageRecord(itemID string, doc Document) *UsageRecord {
	rec := &UsageRecord{ItemID: itemID}
	rec.Count, _ = docInt(doc, "count")
	rec.LastUsedAt, _ = docTime(doc, "last_used_at")
	return rec
}

// encodeVariables flattens placeholder definitions; the order value travels
// with each entry because the store does not guarantee array ordering
// durability.
func encodeVariables(vars []TemplateVariable) []any {
	out := make([]any, 0, len(vars))
	for _, v := range vars {
		out = append(out, Document{
			"name":    v.Name,
			"label":   v.Label,
			"example": v.Example,
			"order":   v.Order,
		})
	}
	return out
}

// decodeVariables rebuilds the placeholder sequence, re-sorting by the stored
// order value rather than trusting storage order. Malformed entries are
// dropped.
func decodeVariables(raw any) []TemplateVariable {
	entries, ok := raw.([]any)
	if !ok {
		return nil
	}
	var vars []TemplateVariable
	for _, entry := range entries {
		doc := asDocument(entry)
		if doc == nil {
			continue
		}
		name, ok := docString(doc, "name")
		if !ok || name == "" {
			continue
		}
		v := TemplateVariable{Name: name}
		v.Label, _ = docString(doc, "label")
		v.Example, _ = docString(doc, "example")
		if order, ok := docInt(doc, "order"); ok {
			v.Order = int(order)
		}
		vars = append(vars, v)
	}
	sort.SliceStable(vars, func(i, j int) bool { return vars[i].Order < vars[j].Order })
	return vars
}

func encodeTags(tags []string) []any {
	out := make([]any, 0, len(tags))
	for _, t := range tags {
		out = append(out, t)
	}
	return out
}

// Lenient field accessors. Values may arrive as native Go types from the
// memory store or as JSON-decoded types from the Postgres store.

func asDocument(v any) Document {
	switch d := v.(type) {
	case Document:
		return d
	case map[string]any:
		return d
	}
	return nil
}

func docString(doc Document, key string) (string, bool) {
	v, exists := doc[key]
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func docBool(doc Document, key string) (bool, bool) {
	v, exists := doc[key]
	if !exists {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func docInt(doc Document, key string) (int64, bool) {
	switch n := doc[key].(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}

func docTime(doc Document, key string) (time.Time, bool) {
	switch v := doc[key].(type) {
	case time.Time:
		return v, true
	case string:
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

func docStrings(doc Document, key string) []string {
	switch v := doc[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		var out []string
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
