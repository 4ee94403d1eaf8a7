// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Darcy Contributors

package errors_test

import (
	stderrors "errors"
	"net/http"
	"testing"

	darcyerr "github.com/darcy-ai/darcy/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIncludesCodeAndFields(t *testing.T) {
	err := darcyerr.New(
		darcyerr.CodeConfigValidateInvalidValue,
		"invalid provider configuration",
		darcyerr.FieldProvider("groq"),
		darcyerr.FieldCrew("teaching"),
	)

	require.Error(t, err)
	assert.Equal(t, darcyerr.CodeConfigValidateInvalidValue, darcyerr.CodeOf(err))
	assert.True(t, darcyerr.HasCode(err, darcyerr.CodeConfigValidateInvalidValue))

	fields := darcyerr.FieldsOf(err)
	assert.Equal(t, "groq", fields["provider"])
	assert.Equal(t, "teaching", fields["crew"])
}

func TestErrorfWrapsInnerError(t *testing.T) {
	inner := stderrors.New("connection refused")
	err := darcyerr.Errorf(darcyerr.CodeProviderUpstreamFailure, "calling %s: %w", "ollama", inner)
	require.Error(t, err)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "calling ollama")
	assert.True(t, darcyerr.IsUpstreamFailure(err))
}

func TestWrapPreservesWrappedErrorAndCode(t *testing.T) {
	root := stderrors.New("no such key")
	err := darcyerr.Wrap(root, darcyerr.CodeSecretNotFound, "resolving api key", darcyerr.FieldProvider("openai"))

	require.Error(t, err)
	assert.ErrorIs(t, err, root)
	assert.True(t, darcyerr.IsNotFound(err))
	assert.Equal(t, "openai", darcyerr.FieldsOf(err)["provider"])
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, darcyerr.Wrap(nil, darcyerr.CodeStoreWriteFailure, "noop"))
	assert.NoError(t, darcyerr.Wrapf(nil, darcyerr.CodeStoreWriteFailure, "noop %d", 1))
	assert.NoError(t, darcyerr.With(nil, darcyerr.FieldProvider("x")))
}

func TestWithKeepsExistingCode(t *testing.T) {
	err := darcyerr.New(darcyerr.CodeProviderCallTimeout, "deadline exceeded")
	err = darcyerr.With(err, darcyerr.FieldRequestID("req-1"))

	assert.Equal(t, darcyerr.CodeProviderCallTimeout, darcyerr.CodeOf(err))
	assert.Equal(t, "req-1", darcyerr.FieldsOf(err)["request_id"])
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, darcyerr.Code(""), darcyerr.CodeOf(stderrors.New("plain")))
	assert.Equal(t, darcyerr.Code(""), darcyerr.CodeOf(nil))
	assert.Nil(t, darcyerr.FieldsOf(stderrors.New("plain")))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		code darcyerr.Code
		want int
	}{
		{"not found", darcyerr.CodeProviderNotFound, http.StatusNotFound},
		{"conflict", darcyerr.CodeProviderDuplicate, http.StatusConflict},
		{"invalid input", darcyerr.CodeServerRequestInvalid, http.StatusBadRequest},
		{"invalid value", darcyerr.CodeConfigValidateInvalidValue, http.StatusBadRequest},
		{"timeout", darcyerr.CodeProviderCallTimeout, http.StatusGatewayTimeout},
		{"upstream", darcyerr.CodeProviderUpstreamFailure, http.StatusBadGateway},
		{"internal", darcyerr.CodeServerInternalFailure, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, darcyerr.HTTPStatus(darcyerr.New(tt.code, tt.name)))
		})
	}
}

func TestJoinAggregates(t *testing.T) {
	a := stderrors.New("a")
	b := stderrors.New("b")
	err := darcyerr.Join(a, b)

	assert.ErrorIs(t, err, a)
	assert.ErrorIs(t, err, b)
	assert.Equal(t, darcyerr.CodeServerInternalFailure, darcyerr.CodeOf(err))
}
