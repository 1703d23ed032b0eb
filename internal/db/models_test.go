package db

import (
	"reflect"
	"strings"
	"testing"
)

// gormColumns extracts the column names a model's gorm tags declare, which
// AutoMigrate turns into the table's real columns.
func gormColumns(t *testing.T, model any) map[string]bool {
	t.Helper()

	columns := make(map[string]bool)
	modelType := reflect.TypeOf(model)
	for i := 0; i < modelType.NumField(); i++ {
		tag := modelType.Field(i).Tag.Get("gorm")
		for _, part := range strings.Split(tag, ";") {
			if name, ok := strings.CutPrefix(part, "column:"); ok {
				columns[name] = true
			}
		}
	}
	return columns
}

func TestProductContentModelCoversDetailRead(t *testing.T) {
	t.Parallel()

	columns := gormColumns(t, ProductContent{})
	for _, column := range []string{"title", "body", "content_status", "updated_at", "published_at"} {
		if !columns[column] {
			t.Fatalf("product detail read selects %q but ProductContent declares no such column", column)
		}
	}
}

func TestProductContentModelHasPublishedAt(t *testing.T) {
	t.Parallel()

	field, ok := reflect.TypeOf(ProductContent{}).FieldByName("PublishedAt")
	if !ok {
		t.Fatalf("ProductContent has no PublishedAt field")
	}
	if field.Type.Kind() != reflect.Ptr {
		t.Fatalf("PublishedAt must be nullable, got %s", field.Type)
	}
}
