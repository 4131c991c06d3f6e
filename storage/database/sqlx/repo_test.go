package sqlxrepos

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
)

func Test_newRepository_placeholders(t *testing.T) {
	tests := []struct {
		engine string
		want   string
	}{
		{engine: "postgres", want: "SELECT id FROM member WHERE id = $1"},
		{engine: "sqlite", want: "SELECT id FROM member WHERE id = ?"},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			repo := newRepository(nil, tt.engine)
			got, _, err := repo.sb.Select("id").From("member").Where(sq.Eq{"id": "x"}).ToSql()
			if err != nil {
				t.Fatalf("ToSql() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ToSql() = %q, want %q", got, tt.want)
			}
		})
	}
}
