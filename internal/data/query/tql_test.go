package query

import "testing"

func TestParseTQL(t *testing.T) {
	query, err := ParseTQL(`SELECT files WHERE percentage < 50 AND path CONTAINS "components/"`)
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	if query.Target != "files" {
		t.Fatalf("expected target files, got %q", query.Target)
	}
	if len(query.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(query.Conditions))
	}
	if !query.Conditions[0].IsNumber || query.Conditions[0].NumVal != 50 {
		t.Fatalf("unexpected first condition: %+v", query.Conditions[0])
	}
	if query.Conditions[1].Op != "contains" || query.Conditions[1].StrVal != "components/" {
		t.Fatalf("unexpected second condition: %+v", query.Conditions[1])
	}
}

func TestParseTQL_NoWhere(t *testing.T) {
	query, err := ParseTQL("select directories")
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	if query.Target != "directories" || len(query.Conditions) != 0 {
		t.Fatalf("unexpected query: %+v", query)
	}
}

func TestParseTQL_FloatValue(t *testing.T) {
	query, err := ParseTQL("SELECT directories WHERE average_propagation >= 33.34")
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	if query.Conditions[0].NumVal != 33.34 {
		t.Fatalf("expected 33.34, got %v", query.Conditions[0].NumVal)
	}
}

func TestParseTQL_Invalid(t *testing.T) {
	for _, raw := range []string{
		"DELETE FROM files",
		"SELECT tokens",
		"SELECT files WHERE percentage ~ 10",
	} {
		if _, err := ParseTQL(raw); err == nil {
			t.Fatalf("expected %q to fail", raw)
		}
	}
}

func TestFilterFiles(t *testing.T) {
	items := []FileSummary{
		{Path: "styles/base.css", Percentage: 100, TokenCount: 4, DeclarationCount: 4},
		{Path: "components/button.css", Percentage: 25, TokenCount: 1, DeclarationCount: 4, UnresolvedCount: 2},
		{Path: "components/card.css", Percentage: -1},
	}

	query, err := ParseTQL(`SELECT files WHERE percentage < 50 AND percentage >= 0 AND path CONTAINS "components"`)
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	rows, err := FilterFiles(items, query.Conditions)
	if err != nil {
		t.Fatalf("filter files: %v", err)
	}
	if len(rows) != 1 || rows[0].Path != "components/button.css" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestFilterFiles_UnknownField(t *testing.T) {
	query, err := ParseTQL("SELECT files WHERE fan_out > 1")
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	if _, err := FilterFiles(nil, query.Conditions); err == nil {
		t.Fatal("expected unknown field to fail")
	}
}

func TestFilterDirectories(t *testing.T) {
	items := []DirectorySummary{
		{Key: ".", AveragePropagation: 80, FileCount: 2},
		{Key: "styles", AveragePropagation: 40.5, FileCount: 3},
		{Key: "styles%2Fcomponents", AveragePropagation: 12, FileCount: 1},
	}

	query, err := ParseTQL(`SELECT directories WHERE average_propagation <= 40.5 AND key CONTAINS "styles"`)
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	rows, err := FilterDirectories(items, query.Conditions)
	if err != nil {
		t.Fatalf("filter directories: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 directories, got %d", len(rows))
	}
	if rows[0].Key != "styles" || rows[1].Key != "styles%2Fcomponents" {
		t.Fatalf("unexpected directory set: %+v", rows)
	}
}

func TestFilterDirectories_TypeMismatch(t *testing.T) {
	query, err := ParseTQL(`SELECT directories WHERE file_count = "three"`)
	if err != nil {
		t.Fatalf("parse tql: %v", err)
	}
	if _, err := FilterDirectories([]DirectorySummary{{Key: "."}}, query.Conditions); err == nil {
		t.Fatal("expected type mismatch to fail")
	}
}
