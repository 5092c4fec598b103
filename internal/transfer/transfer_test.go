package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/gateway"
	"github.com/bcnelson/app-catalog/internal/storage/memory"
)

func sample() []*domain.Application {
	return []*domain.Application{
		{
			ID:                "a1",
			AppCode:           "HR1",
			Name:              "Employee Management System",
			Description:       "Core HR records",
			FunctionalDomains: []string{"Human Resources"},
			TechnicalStack:    []string{"React", "PostgreSQL"},
			Status:            domain.StatusActive,
			RelatedApps:       domain.RelatedApps{Functional: []string{"PY1"}, Technical: []string{}},
			Stakeholders:      domain.Stakeholders{ProductOwner: "Sarah Johnson", SecurityOfficer: "Lisa Park"},
		},
		{
			ID:                "a2",
			AppCode:           "FN1",
			Name:              "Financial Reporting",
			FunctionalDomains: []string{"Finance", "Analytics"},
			Status:            domain.StatusDeprecated,
		},
	}
}

func TestFlattenStakeholders(t *testing.T) {
	recs := Flatten(sample())
	require.Len(t, recs, 2)
	assert.Equal(t, []StakeholderEntry{
		{Role: domain.RoleProductOwner, Name: "Sarah Johnson"},
		{Role: domain.RoleSecurityOfficer, Name: "Lisa Park"},
	}, recs[0].Stakeholders)
	assert.Empty(t, recs[1].Stakeholders)
	assert.NotNil(t, recs[1].TechnicalStack)
	assert.NotNil(t, recs[1].RelatedApps.Functional)
}

func TestFilename(t *testing.T) {
	day := time.Date(2024, 3, 7, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "applications-2024-03-07.json", Filename(day, FormatJSON))
	assert.Equal(t, "applications-2024-03-07.yaml", Filename(day, "yml"))
	assert.Equal(t, "applications-2024-03-07.json", Filename(day, ""))
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sample()))

	var out []map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "HR1", out[0]["appCode"])
}

func TestWriteUnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "csv", sample())
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func newImporter() (*Importer, *gateway.Applications) {
	apps := gateway.NewApplications(memory.New(), zerolog.Nop())
	return NewImporter(apps, zerolog.Nop()), apps
}

func TestExportImportRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample()))

	im, apps := newImporter()
	res, err := im.Import(context.Background(), buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	assert.NoError(t, res.Err())

	for _, want := range sample() {
		got, err := apps.GetByCode(context.Background(), want.AppCode)
		require.NoError(t, err)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Status, got.Status)
		assert.ElementsMatch(t, want.FunctionalDomains, got.FunctionalDomains)
		assert.ElementsMatch(t, want.TechnicalStack, got.TechnicalStack)
		assert.Equal(t, want.Stakeholders, got.Stakeholders)
	}
}

func TestImportPartial(t *testing.T) {
	im, _ := newImporter()
	data := []byte(`[
		{"appCode": "HR1", "name": "HR"},
		{"name": "No Code"}
	]`)

	res, err := im.Import(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, domain.StatusUnderDevelopment, res.Created[0].Status)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 1, res.Failed[0].Index)
	assert.ErrorIs(t, res.Err(), domain.ErrInvalidInput)
}

func TestImportSingleObjectWithRoleMap(t *testing.T) {
	im, _ := newImporter()
	data := []byte(`{"appCode":"SC1","name":"Supply","stakeholders":{"leadDeveloper":"Mike Chen"},"relatedApps":{"technical":["HR1"]}}`)

	res, err := im.Import(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, "Mike Chen", res.Created[0].Stakeholders.LeadDeveloper)
	assert.Equal(t, []string{"HR1"}, res.Created[0].RelatedApps.Technical)
}

func TestImportRejectsUnknownRole(t *testing.T) {
	im, _ := newImporter()
	res, err := im.Import(context.Background(), []byte(`[{"appCode":"SC1","name":"S","stakeholders":[{"role":"cto","name":"X"}]}]`))
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "SC1", res.Failed[0].AppCode)
}

func TestImportDuplicateIsPerRecord(t *testing.T) {
	im, _ := newImporter()
	res, err := im.Import(context.Background(), []byte(`[{"appCode":"HR1","name":"A"},{"appCode":"HR1","name":"B"}]`))
	require.NoError(t, err)
	assert.Len(t, res.Created, 1)
	require.Len(t, res.Failed, 1)
	assert.ErrorIs(t, res.Err(), domain.ErrAlreadyExists)
}

func TestImportMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid json", `[{"appCode":`},
		{"scalar", `42`},
		{"string", `"HR1"`},
		{"empty", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			im, apps := newImporter()
			_, err := im.Import(context.Background(), []byte(tt.data))
			assert.True(t, IsMalformed(err))

			list, err := apps.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestFailureJSON(t *testing.T) {
	im, _ := newImporter()
	res, err := im.Import(context.Background(), []byte(`[{"name":"x"}]`))
	require.NoError(t, err)

	body, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"failed":[{"index":0`)
	assert.Contains(t, string(body), `"created":[]`)
}
