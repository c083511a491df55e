package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeStruct(t *testing.T) {
	req := AddMemberRequest{User: "  wallet-a  "}
	SanitizeStruct(&req)
	assert.Equal(t, "wallet-a", req.User)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := RegisterRequest{DisplayName: `<script>alert("x")</script>`}
	SanitizeStruct(&req)
	assert.NotContains(t, req.DisplayName, "<script>")
}

func TestSanitizeStruct_SliceFields(t *testing.T) {
	req := SplitExpenseRequest{Users: []string{" wallet-a ", "wallet-b"}}
	SanitizeStruct(&req)
	assert.Equal(t, []string{"wallet-a", "wallet-b"}, req.Users)
}

func TestSanitizeStruct_NonStructInput(t *testing.T) {
	s := "plain"
	SanitizeStruct(&s) // no-op, must not panic
	SanitizeStruct(nil)
	assert.Equal(t, "plain", s)
}
