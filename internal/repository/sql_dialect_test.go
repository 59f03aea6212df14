package repository

import (
	"testing"
)

func TestLikeOperatorByDialect(t *testing.T) {
	if got := likeOperatorByDialect("postgres"); got != "ILIKE" {
		t.Fatalf("postgres operator want ILIKE got %s", got)
	}
	if got := likeOperatorByDialect("postgresql"); got != "ILIKE" {
		t.Fatalf("postgresql operator want ILIKE got %s", got)
	}
	if got := likeOperatorByDialect("sqlite"); got != "LIKE" {
		t.Fatalf("sqlite operator want LIKE got %s", got)
	}
	if got := likeOperatorByDialect(""); got != "LIKE" {
		t.Fatalf("empty dialect operator want LIKE got %s", got)
	}
}

func TestBuildSearchConditionByDialect(t *testing.T) {
	condition, argCount := buildSearchConditionByDialect("sqlite", []string{"name", "email", " code "})
	if condition != "name LIKE ? OR email LIKE ? OR code LIKE ?" {
		t.Fatalf("sqlite condition unexpected: %s", condition)
	}
	if argCount != 3 {
		t.Fatalf("arg count want 3 got %d", argCount)
	}

	condition, argCount = buildSearchConditionByDialect("postgres", []string{"name", "", "sku"})
	if condition != "name ILIKE ? OR sku ILIKE ?" {
		t.Fatalf("postgres condition unexpected: %s", condition)
	}
	if argCount != 2 {
		t.Fatalf("arg count want 2 got %d", argCount)
	}
}

func TestRepeatLikeArgs(t *testing.T) {
	args := repeatLikeArgs("%tee%", 3)
	if len(args) != 3 {
		t.Fatalf("args len want 3 got %d", len(args))
	}
	for _, arg := range args {
		if arg != "%tee%" {
			t.Fatalf("arg want %%tee%% got %v", arg)
		}
	}
}
