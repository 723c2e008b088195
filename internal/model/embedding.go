package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Embedding is a dense vector column stored in pgvector's text form ("[0.1,0.2]").
// Postgres reads it as a native vector; other dialects keep the text.
// An empty Embedding is written as NULL, never as a zero vector.
type Embedding []float32

func (e Embedding) Value() (driver.Value, error) {
	if len(e) == 0 {
		return nil, nil
	}
	return pgvector.NewVector(e).Value()
}

func (e *Embedding) Scan(src any) error {
	if src == nil {
		*e = nil
		return nil
	}
	var v pgvector.Vector
	if err := v.Scan(src); err != nil {
		return fmt.Errorf("scan embedding failed: %w", err)
	}
	*e = v.Slice()
	return nil
}

// GormDataType keeps gorm from parsing the slice as an association.
func (Embedding) GormDataType() string {
	return "vector"
}

func (Embedding) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	switch db.Dialector.Name() {
	case "postgres":
		return "vector"
	case "mysql":
		return "mediumtext"
	default:
		return "text"
	}
}

// Vector returns the query-argument form used by pgvector operators.
func (e Embedding) Vector() pgvector.Vector {
	return pgvector.NewVector(e)
}
