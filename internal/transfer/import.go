package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"go.uber.org/multierr"

	"github.com/bcnelson/app-catalog/internal/domain"
	"github.com/bcnelson/app-catalog/internal/metrics"
)

// Creator creates one application. *gateway.Applications satisfies it.
type Creator interface {
	Create(ctx context.Context, req *domain.CreateApplicationRequest) (*domain.Application, error)
}

// Failure describes one record that was skipped.
type Failure struct {
	Index   int    `json:"index"`
	AppCode string `json:"appCode,omitempty"`
	Error   string `json:"error"`

	err error
}

// Result reports the outcome of an import.
type Result struct {
	Created []*domain.Application `json:"created"`
	Failed  []Failure             `json:"failed"`
}

// Err combines every per-record failure, or returns nil when all records were created.
func (r *Result) Err() error {
	var err error
	for _, f := range r.Failed {
		err = multierr.Append(err, fmt.Errorf("record %d (%s): %w", f.Index, f.AppCode, f.err))
	}
	return err
}

// Importer creates applications from exported or hand-written catalog files.
type Importer struct {
	apps Creator
	log  zerolog.Logger
}

// NewImporter returns an importer writing through apps.
func NewImporter(apps Creator, log zerolog.Logger) *Importer {
	return &Importer{apps: apps, log: log.With().Str("component", "import").Logger()}
}

// Parse converts a JSON array or single object into create requests. Records that cannot be
// converted are returned as failures with a nil request in their slot.
func Parse(data []byte) ([]*domain.CreateApplicationRequest, []Failure, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, fmt.Errorf("%w: invalid JSON", domain.ErrMalformedImport)
	}
	root := gjson.ParseBytes(data)

	var records []gjson.Result
	switch {
	case root.IsArray():
		records = root.Array()
	case root.IsObject():
		records = []gjson.Result{root}
	default:
		return nil, nil, fmt.Errorf("%w: expected an array or an object", domain.ErrMalformedImport)
	}

	reqs := make([]*domain.CreateApplicationRequest, len(records))
	var failed []Failure
	for i, rec := range records {
		req, err := toRequest(rec)
		if err != nil {
			failed = append(failed, Failure{Index: i, AppCode: rec.Get("appCode").String(), Error: err.Error(), err: err})
			continue
		}
		reqs[i] = req
	}
	return reqs, failed, nil
}

func toRequest(rec gjson.Result) (*domain.CreateApplicationRequest, error) {
	if !rec.IsObject() {
		return nil, fmt.Errorf("%w: record is not an object", domain.ErrInvalidInput)
	}
	code := strings.TrimSpace(rec.Get("appCode").String())
	if code == "" {
		return nil, fmt.Errorf("%w: missing appCode", domain.ErrInvalidInput)
	}

	req := &domain.CreateApplicationRequest{
		AppCode:           code,
		Name:              rec.Get("name").String(),
		Description:       rec.Get("description").String(),
		FunctionalDomains: stringList(rec.Get("functionalDomains")),
		TechnicalStack:    stringList(rec.Get("technicalStack")),
		Status:            domain.Status(rec.Get("status").String()),
	}
	if req.Status == "" {
		req.Status = domain.StatusUnderDevelopment
	}

	if rel := rec.Get("relatedApps"); rel.IsObject() {
		req.RelatedApps = &domain.RelatedApps{
			Functional: stringList(rel.Get("functional")),
			Technical:  stringList(rel.Get("technical")),
		}
	}

	people, err := stakeholders(rec.Get("stakeholders"))
	if err != nil {
		return nil, err
	}
	req.Stakeholders = people
	return req, nil
}

// stringList reads a JSON string array; anything else yields an empty list.
func stringList(v gjson.Result) []string {
	out := []string{}
	if !v.IsArray() {
		return out
	}
	for _, item := range v.Array() {
		out = append(out, item.String())
	}
	return out
}

// stakeholders accepts the role map or the exported [{role, name}] list.
func stakeholders(v gjson.Result) (*domain.Stakeholders, error) {
	if !v.Exists() || v.Type == gjson.Null {
		return nil, nil
	}
	out := &domain.Stakeholders{}
	set := func(key, name string) error {
		role, err := domain.ParseRole(key)
		if err != nil {
			return err
		}
		return out.Set(role, name)
	}

	var err error
	switch {
	case v.IsArray():
		v.ForEach(func(_, entry gjson.Result) bool {
			err = set(entry.Get("role").String(), entry.Get("name").String())
			return err == nil
		})
	case v.IsObject():
		v.ForEach(func(key, name gjson.Result) bool {
			err = set(key.String(), name.String())
			return err == nil
		})
	default:
		err = fmt.Errorf("%w: stakeholders must be a map or a list", domain.ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Import creates each record independently. Malformed input aborts with ErrMalformedImport;
// records that fail are logged and reported in the result.
func (im *Importer) Import(ctx context.Context, data []byte) (*Result, error) {
	reqs, failed, err := Parse(data)
	if err != nil {
		return nil, err
	}

	res := &Result{Created: []*domain.Application{}, Failed: []Failure{}}
	for _, f := range failed {
		im.log.Warn().Int("index", f.Index).Str("app_code", f.AppCode).Err(f.err).Msg("skipping import record")
	}
	res.Failed = append(res.Failed, failed...)

	for i, req := range reqs {
		if req == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		app, err := im.apps.Create(ctx, req)
		if err != nil {
			im.log.Warn().Int("index", i).Str("app_code", req.AppCode).Err(err).Msg("import record failed")
			res.Failed = append(res.Failed, Failure{Index: i, AppCode: req.AppCode, Error: err.Error(), err: err})
			continue
		}
		res.Created = append(res.Created, app)
	}

	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Index < res.Failed[j].Index })
	metrics.RecordImport(len(res.Created), len(res.Failed))
	im.log.Info().Int("created", len(res.Created)).Int("failed", len(res.Failed)).Msg("import finished")
	return res, nil
}

// IsMalformed reports whether err aborted an import before any record was written.
func IsMalformed(err error) bool {
	return errors.Is(err, domain.ErrMalformedImport)
}
