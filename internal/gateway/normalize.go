package gateway

import (
	"strings"
	"time"

	"github.com/bcnelson/app-catalog/internal/domain"
)

// assemble joins child rows onto their application rows. Relationships are grouped by type
// and stakeholder rows by role; roles without a row come back as "".
func assemble(records []*domain.ApplicationRecord, people []*domain.StakeholderAssignment, rels []*domain.Relationship) []*domain.Application {
	byApp := make(map[string]*domain.Application, len(records))
	apps := make([]*domain.Application, 0, len(records))
	for _, rec := range records {
		app := &domain.Application{
			ID:                rec.ID,
			AppCode:           rec.AppCode,
			Name:              rec.Name,
			Description:       rec.Description,
			FunctionalDomains: nonNil(rec.FunctionalDomains),
			TechnicalStack:    nonNil(rec.TechnicalStack),
			Status:            rec.Status,
			RelatedApps:       domain.RelatedApps{Functional: []string{}, Technical: []string{}},
			CreatedAt:         rec.CreatedAt,
			UpdatedAt:         rec.UpdatedAt,
		}
		byApp[rec.ID] = app
		apps = append(apps, app)
	}

	for _, row := range people {
		app, ok := byApp[row.ApplicationID]
		if !ok {
			continue
		}
		// Rows with a role outside the fixed set are ignored.
		_ = app.Stakeholders.Set(row.Role, row.Name)
	}

	for _, rel := range rels {
		app, ok := byApp[rel.SourceAppID]
		if !ok {
			continue
		}
		switch rel.Type {
		case domain.RelationshipFunctional:
			app.RelatedApps.Functional = append(app.RelatedApps.Functional, rel.TargetAppCode)
		case domain.RelationshipTechnical:
			app.RelatedApps.Technical = append(app.RelatedApps.Technical, rel.TargetAppCode)
		}
	}
	return apps
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return append([]string{}, list...)
}

// stakeholderRows expands the role map into one row per non-blank name. directory maps
// exact stakeholder names to directory ids; unmatched names get a nil id.
func stakeholderRows(appID string, s domain.Stakeholders, directory map[string]string, newID func() string, now time.Time) []*domain.StakeholderAssignment {
	rows := make([]*domain.StakeholderAssignment, 0, len(domain.Roles))
	for _, role := range domain.Roles {
		name := strings.TrimSpace(s.Get(role))
		if name == "" {
			continue
		}
		row := &domain.StakeholderAssignment{
			ID:            newID(),
			ApplicationID: appID,
			Role:          role,
			Name:          name,
			CreatedAt:     now,
		}
		if id, ok := directory[name]; ok {
			sid := id
			row.StakeholderID = &sid
		}
		rows = append(rows, row)
	}
	return rows
}

// relationshipRows emits one row per listed code, functional first. Rows are stamped a
// microsecond apart so reading them back by created_at keeps list order.
func relationshipRows(appID string, rel domain.RelatedApps, newID func() string, now time.Time) []*domain.Relationship {
	rows := make([]*domain.Relationship, 0, len(rel.Functional)+len(rel.Technical))
	add := func(codes []string, t domain.RelationshipType) {
		for _, code := range codes {
			rows = append(rows, &domain.Relationship{
				ID:            newID(),
				SourceAppID:   appID,
				TargetAppCode: strings.TrimSpace(code),
				Type:          t,
				CreatedAt:     now.Add(time.Duration(len(rows)) * time.Microsecond),
			})
		}
	}
	add(rel.Functional, domain.RelationshipFunctional)
	add(rel.Technical, domain.RelationshipTechnical)
	return rows
}
