package filters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformbuilds/alertdesk/internal/metadata"
	"github.com/platformbuilds/alertdesk/internal/models"
)

func testDictionary() *metadata.Dictionary {
	return metadata.FromAlertMetadata(models.AlertMetadata{
		AlertSources:  []models.AlertSource{{PK: "1", Name: "nav"}, {PK: "2", Name: "zabbix"}},
		ObjectTypes:   []models.ObjectType{{PK: "10", Name: "host"}},
		ParentObjects: []models.ParentObject{{PK: "20", Name: "switch-a"}},
		ProblemTypes:  []models.ProblemType{{PK: "30", Name: "down"}, {PK: "31", Name: "flapping"}},
	})
}

func TestEncode_KeepsOrder(t *testing.T) {
	def := Encode(models.FilterWithNames{
		Sources:      []models.IDName{{ID: "2", Name: "zabbix"}, {ID: "1", Name: "nav"}},
		ProblemTypes: []models.IDName{{ID: "31", Name: "flapping"}},
	})
	assert.Equal(t, []string{"2", "1"}, def.SourceIDs)
	assert.Equal(t, []string{"31"}, def.ProblemTypeIDs)
	assert.Empty(t, def.ObjectTypeIDs)
}

func TestRoundTrip(t *testing.T) {
	dict := testDictionary()
	in := models.FilterWithNames{
		PK:            "7",
		Name:          "core",
		Sources:       []models.IDName{{ID: "2", Name: "zabbix"}, {ID: "1", Name: "nav"}},
		ObjectTypes:   []models.IDName{{ID: "10", Name: "host"}},
		ParentObjects: []models.IDName{},
		ProblemTypes:  []models.IDName{{ID: "30", Name: "down"}, {ID: "31", Name: "flapping"}},
	}

	d, err := Decode(Encode(in), dict)
	require.NoError(t, err)
	assert.Equal(t, in, WithNames(in.PK, in.Name, d))

	s, err := Serialize(Encode(in))
	require.NoError(t, err)
	out, err := FromFilter(models.Filter{PK: "7", Name: "core", FilterString: s}, dict)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecode_LookupError(t *testing.T) {
	_, err := Decode(models.FilterDefinition{
		SourceIDs:      []string{"1"},
		ProblemTypeIDs: []string{"99"},
	}, testDictionary())

	var le *models.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, DimProblemTypes, le.Dimension)
	assert.Equal(t, "99", le.ID)
}

func TestSerialize_NilDimensionsAreEmptyArrays(t *testing.T) {
	s, err := Serialize(models.FilterDefinition{SourceIDs: []string{"1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"sourceIds":["1"],"objectTypeIds":[],"parentObjectIds":[],"problemTypeIds":[]}`, s)
}

func TestParse(t *testing.T) {
	def, err := Parse(`{"sourceIds":["1","2"],"objectTypeIds":[],"parentObjectIds":null,"problemTypeIds":["30"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, def.SourceIDs)
	assert.Equal(t, []string{}, def.ParentObjectIDs)
	assert.Equal(t, []string{"30"}, def.ProblemTypeIDs)
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{
		``,
		`not json`,
		`null`,
		`[]`,
		`{"sourceIds":["1"],"objectTypeIds":[],"parentObjectIds":[]}`,
		`{"sourceIds":[1],"objectTypeIds":[],"parentObjectIds":[],"problemTypeIds":[]}`,
	} {
		_, err := Parse(in)
		var de *models.DeserializationError
		assert.True(t, errors.As(err, &de), "input %q: %v", in, err)
		var le *models.LookupError
		assert.False(t, errors.As(err, &le))
	}
}

func TestFromFilter_StaleMetadata(t *testing.T) {
	_, err := FromFilter(models.Filter{
		PK:           "1",
		Name:         "stale",
		FilterString: `{"sourceIds":["404"],"objectTypeIds":[],"parentObjectIds":[],"problemTypeIds":[]}`,
	}, testDictionary())
	var le *models.LookupError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, DimSources, le.Dimension)
}
