package db

import (
	"context"
	"testing"
)

func TestNewRejectsInvalidDSN(t *testing.T) {
	if _, err := New(context.Background(), "postgres://%zz", 4); err == nil {
		t.Fatal("expected parse error for malformed dsn")
	}
}
