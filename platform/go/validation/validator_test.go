package validation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loyaltycore/campaigns-api/platform/go/validation"
)

const objectSchema = `{"type": "object", "required": ["name"]}`

func TestValidate(t *testing.T) {
	t.Parallel()

	v := validation.NewSchemaValidator()

	require.NoError(t, v.Validate("test/object", []byte(objectSchema), []byte(`{"name": "ok"}`)))

	err := v.Validate("test/object", []byte(objectSchema), []byte(`{"other": 1}`))
	require.Error(t, err)

	err = v.Validate("test/object", []byte(objectSchema), []byte(`[1, 2]`))
	require.Error(t, err)
}

func TestValidateEmptyPayload(t *testing.T) {
	t.Parallel()

	v := validation.NewSchemaValidator()
	require.Error(t, v.Validate("test/object", []byte(objectSchema), nil))
}

func TestValidateMalformedPayload(t *testing.T) {
	t.Parallel()

	v := validation.NewSchemaValidator()
	require.Error(t, v.Validate("test/object", []byte(objectSchema), []byte(`{"name":`)))
}

// The cache is keyed by name, so a second call with a different definition
// under the same name still validates against the first compiled schema.
func TestValidateCachesByName(t *testing.T) {
	t.Parallel()

	v := validation.NewSchemaValidator()
	require.NoError(t, v.Validate("test/cached", []byte(objectSchema), []byte(`{"name": "ok"}`)))

	err := v.Validate("test/cached", []byte(`{"type": "array"}`), []byte(`{"name": "ok"}`))
	require.NoError(t, err)
}
