package trait

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/rotisserie/eris"
	"github.com/wI2L/jsondiff"

	"github.com/weftworks/weft/types"
)

// SerializeSchema renders a trait schema as JSON schema bytes. The schema is
// materialized as an anonymous struct type so the reflector sees real field
// types rather than a generic map.
func SerializeSchema(s types.Schema) ([]byte, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]reflect.StructField, 0, len(names))
	for _, name := range names {
		fields = append(fields, reflect.StructField{
			Name: exportName(name),
			Type: goTypeFor(s[name]),
			Tag:  reflect.StructTag(fmt.Sprintf(`json:"%s"`, name)),
		})
	}
	st := reflect.StructOf(fields)
	schema := jsonschema.Reflect(reflect.New(st).Interface())
	bz, err := schema.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "schema must be json serializable")
	}
	return bz, nil
}

// IsSchemaValid reports whether two serialized schemas are equivalent.
func IsSchemaValid(schemaBytes1, schemaBytes2 []byte) (bool, error) {
	patch, err := jsondiff.CompareJSON(schemaBytes1, schemaBytes2)
	if err != nil {
		return false, eris.Wrap(err, "")
	}
	return patch.String() == "", nil
}

func goTypeFor(kind types.FieldKind) reflect.Type {
	switch kind {
	case types.FieldNumber:
		return reflect.TypeOf(float64(0))
	case types.FieldBool:
		return reflect.TypeOf(false)
	case types.FieldRef:
		return reflect.TypeOf(types.Nil)
	default:
		return reflect.TypeOf((*any)(nil)).Elem()
	}
}

// exportName upper-cases the first rune so reflect.StructOf accepts the
// field; the original name survives in the json tag.
func exportName(name string) string {
	return "F" + strings.ToUpper(name[:1]) + name[1:]
}
