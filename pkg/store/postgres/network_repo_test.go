package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"translated duplicated key", gorm.ErrDuplicatedKey, true},
		{"wrapped duplicated key", fmt.Errorf("create assignment: %w", gorm.ErrDuplicatedKey), true},
		{"raw pg unique violation", &pgconn.PgError{Code: "23505"}, true},
		{"wrapped pg unique violation", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), true},
		{"other pg error", &pgconn.PgError{Code: "23503"}, false},
		{"unrelated error", errors.New("connection reset"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isUniqueViolation(tc.err); got != tc.want {
				t.Fatalf("isUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestLowestFreePort(t *testing.T) {
	cases := []struct {
		name  string
		taken []int
		total int
		want  int
	}{
		{"empty cabinet", nil, 4, 1},
		{"gap reused", []int{1, 3}, 4, 2},
		{"sequential", []int{1, 2}, 4, 3},
		{"full", []int{1, 2, 3, 4}, 4, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := lowestFreePort(tc.taken, tc.total); got != tc.want {
				t.Fatalf("lowestFreePort(%v, %d) = %d, want %d", tc.taken, tc.total, got, tc.want)
			}
		})
	}
}
