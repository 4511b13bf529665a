package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/termgraph/internal/domain/apperrors"
)

func TestValidateRequest_RelationType(t *testing.T) {
	type req struct {
		Type string `validate:"required,relationtype"`
	}

	require.NoError(t, validateRequest(req{Type: "parent"}))
	require.NoError(t, validateRequest(req{Type: "Inheritance"}))

	err := validateRequest(req{Type: "cousin"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), `type "cousin" is not a relation type`)

	err = validateRequest(req{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "type is required")
}
