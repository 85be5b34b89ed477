package dto

import (
	"testing"

	apperrors "github.com/spec-kit/agency-dashboard/pkg/util/errorutil"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     any
		invalid []string
	}{
		{
			name: "valid client",
			req:  ClientCreateRequest{Name: "Acme", Email: "a@acme.io", ContactNumber: "0123456789"},
		},
		{
			name:    "short phone",
			req:     ClientCreateRequest{Name: "Acme", Email: "a@acme.io", ContactNumber: "12345"},
			invalid: []string{"contactNumber"},
		},
		{
			name:    "missing employee fields",
			req:     EmployeeCreateRequest{Email: "nope", Password: "abc"},
			invalid: []string{"employeeName", "email", "department", "password"},
		},
		{
			name:    "bad post date",
			req:     TaskCreateRequest{Name: "Reel", Department: "video", PostDate: "14/06/2025"},
			invalid: []string{"postDate"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.req)
			if len(tt.invalid) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			domainErr := apperrors.ToDomainError(err)
			if domainErr == nil || domainErr.Code != "VALIDATION_FAILED" {
				t.Fatalf("expected validation error, got %v", err)
			}
			for _, field := range tt.invalid {
				if _, ok := domainErr.Details[field]; !ok {
					t.Errorf("expected %s in details %v", field, domainErr.Details)
				}
			}
		})
	}
}
