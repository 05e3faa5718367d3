package tests

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"gorm.io/gorm"

	"github.com/javajoker/agency-onboarding/internal/models"
	"github.com/javajoker/agency-onboarding/internal/services"
)

// memStore is an in-memory services.OnboardingStore. Transactions run
// against the live state and restore a snapshot when fn fails. Foreign
// keys and cascades mirror the Postgres schema.
type memStore struct {
	mu    sync.Mutex
	state memState

	failOn  string // repository method that fails
	failErr error
	pingErr error

	stallView     bool // View waits for ctx to end, like an exhausted pool
	viewDeadlines []bool
}

type memState struct {
	apps        map[string]models.Application
	firms       map[string]models.FirmDetails
	personnel   map[string]models.Personnel
	edu         []models.EducationalQualification
	prof        []models.ProfessionalQualification
	exp         []models.ExperienceDetail
	background  map[string]models.BackgroundInformation
	attachments []models.Attachment
	nextID      uint
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		apps:       make(map[string]models.Application),
		firms:      make(map[string]models.FirmDetails),
		personnel:  make(map[string]models.Personnel),
		background: make(map[string]models.BackgroundInformation),
	}}
}

func (s memState) clone() memState {
	c := memState{
		apps:        make(map[string]models.Application, len(s.apps)),
		firms:       make(map[string]models.FirmDetails, len(s.firms)),
		personnel:   make(map[string]models.Personnel, len(s.personnel)),
		edu:         append([]models.EducationalQualification(nil), s.edu...),
		prof:        append([]models.ProfessionalQualification(nil), s.prof...),
		exp:         append([]models.ExperienceDetail(nil), s.exp...),
		background:  make(map[string]models.BackgroundInformation, len(s.background)),
		attachments: append([]models.Attachment(nil), s.attachments...),
		nextID:      s.nextID,
	}
	for k, v := range s.apps {
		c.apps[k] = v
	}
	for k, v := range s.firms {
		c.firms[k] = v
	}
	for k, v := range s.personnel {
		c.personnel[k] = v
	}
	for k, v := range s.background {
		c.background[k] = v
	}
	return c
}

func (s *memStore) Transaction(ctx context.Context, fn func(repo services.OnboardingRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.state.clone()
	if err := fn(&memRepo{store: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *memStore) View(ctx context.Context, fn func(repo services.OnboardingRepository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, hasDeadline := ctx.Deadline()
	s.viewDeadlines = append(s.viewDeadlines, hasDeadline)
	if s.stallView {
		<-ctx.Done()
		return errors.New("connection pool exhausted")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memRepo{store: s, readOnly: true})
}

func (s *memStore) Ping(ctx context.Context) error {
	return s.pingErr
}

// count returns the number of rows in table.
func (s *memStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch table {
	case "applications":
		return len(s.state.apps)
	case "firm_details":
		return len(s.state.firms)
	case "personnel":
		return len(s.state.personnel)
	case "educational_qualifications":
		return len(s.state.edu)
	case "professional_qualifications":
		return len(s.state.prof)
	case "experience_details":
		return len(s.state.exp)
	case "background_information":
		return len(s.state.background)
	case "attachments":
		return len(s.state.attachments)
	}
	panic("unknown table " + table)
}

func (s *memStore) counts() map[string]int {
	tables := []string{"applications", "firm_details", "personnel", "educational_qualifications",
		"professional_qualifications", "experience_details", "background_information", "attachments"}
	out := make(map[string]int, len(tables))
	for _, t := range tables {
		out[t] = s.count(t)
	}
	return out
}

func (s *memStore) application(id string) (models.Application, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.state.apps[id]
	return app, ok
}

func (s *memStore) firm(appID string) (models.FirmDetails, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.state.firms[appID]
	return f, ok
}

func (s *memStore) personnelRow(id string) (models.Personnel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.personnel[id]
	return p, ok
}

func (s *memStore) educationFor(personnelID string) []models.EducationalQualification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.EducationalQualification
	for _, q := range s.state.edu {
		if q.PersonnelID == personnelID {
			out = append(out, q)
		}
	}
	return out
}

func (s *memStore) allAttachments() []models.Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Attachment(nil), s.state.attachments...)
}

type memRepo struct {
	store    *memStore
	readOnly bool
}

func (r *memRepo) st() *memState {
	return &r.store.state
}

func (r *memRepo) check(method string) error {
	if r.store.failOn == method {
		if r.store.failErr != nil {
			return r.store.failErr
		}
		return fmt.Errorf("%s: injected failure", method)
	}
	return nil
}

func (r *memRepo) write(method string) error {
	if r.readOnly {
		return fmt.Errorf("%s called outside a transaction", method)
	}
	return r.check(method)
}

func (r *memRepo) id() uint {
	r.st().nextID++
	return r.st().nextID
}

func (r *memRepo) requireApp(appID string) error {
	if _, ok := r.st().apps[appID]; !ok {
		return fmt.Errorf("foreign key violation: application %s", appID)
	}
	return nil
}

func (r *memRepo) requirePersonnel(appID, personnelID string) error {
	if p, ok := r.st().personnel[personnelID]; !ok || p.AppID != appID {
		return fmt.Errorf("foreign key violation: personnel %s", personnelID)
	}
	return nil
}

func (r *memRepo) FindApplication(uuid string) (*models.Application, error) {
	if err := r.check("FindApplication"); err != nil {
		return nil, err
	}
	app, ok := r.st().apps[uuid]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &app, nil
}

func (r *memRepo) CreateApplication(app *models.Application) error {
	if err := r.write("CreateApplication"); err != nil {
		return err
	}
	if _, exists := r.st().apps[app.UUID]; exists {
		return errors.New("duplicate key: applications.uuid")
	}
	r.st().apps[app.UUID] = *app
	return nil
}

func (r *memRepo) UpdateCurrentStep(uuid string, step int) error {
	if err := r.write("UpdateCurrentStep"); err != nil {
		return err
	}
	app, ok := r.st().apps[uuid]
	if ok && app.CurrentStep <= step {
		app.CurrentStep = step
		r.st().apps[uuid] = app
	}
	return nil
}

func (r *memRepo) MarkCompleted(uuid string) error {
	if err := r.write("MarkCompleted"); err != nil {
		return err
	}
	if app, ok := r.st().apps[uuid]; ok {
		app.Status = models.ApplicationStatusCompleted
		r.st().apps[uuid] = app
	}
	return nil
}

func (r *memRepo) FindFirmDetails(appID string) (*models.FirmDetails, error) {
	f, ok := r.st().firms[appID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

func (r *memRepo) UpsertFirmDetails(details *models.FirmDetails) error {
	if err := r.write("UpsertFirmDetails"); err != nil {
		return err
	}
	if err := r.requireApp(details.AppID); err != nil {
		return err
	}
	row := *details
	if existing, ok := r.st().firms[details.AppID]; ok {
		row.ID = existing.ID
	} else {
		row.ID = r.id()
	}
	r.st().firms[details.AppID] = row
	return nil
}

func (r *memRepo) ListPersonnel(appID string, withChildren bool) ([]models.Personnel, error) {
	if err := r.check("ListPersonnel"); err != nil {
		return nil, err
	}
	var out []models.Personnel
	for _, p := range r.st().personnel {
		if p.AppID != appID {
			continue
		}
		if withChildren {
			for _, q := range r.st().edu {
				if q.AppID == appID && q.PersonnelID == p.PersonnelID {
					p.EducationalQualifications = append(p.EducationalQualifications, q)
				}
			}
			for _, q := range r.st().prof {
				if q.AppID == appID && q.PersonnelID == p.PersonnelID {
					p.ProfessionalQualifications = append(p.ProfessionalQualifications, q)
				}
			}
			for _, e := range r.st().exp {
				if e.AppID == appID && e.PersonnelID == p.PersonnelID {
					p.ExperienceDetails = append(p.ExperienceDetails, e)
				}
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *memRepo) UpsertPersonnel(roster []models.Personnel) error {
	if err := r.write("UpsertPersonnel"); err != nil {
		return err
	}
	for _, p := range roster {
		if err := r.requireApp(p.AppID); err != nil {
			return err
		}
		for id, other := range r.st().personnel {
			if id != p.PersonnelID && other.AppID == p.AppID && other.Position == p.Position {
				return errors.New("duplicate key: idx_personnel_app_position")
			}
		}
		if existing, ok := r.st().personnel[p.PersonnelID]; ok {
			p.ID = existing.ID
		} else {
			p.ID = r.id()
		}
		r.st().personnel[p.PersonnelID] = p
	}
	return nil
}

func (r *memRepo) DeletePersonnelFromPosition(appID string, position int) error {
	if err := r.write("DeletePersonnelFromPosition"); err != nil {
		return err
	}
	removed := make(map[string]bool)
	for id, p := range r.st().personnel {
		if p.AppID == appID && p.Position >= position {
			removed[id] = true
			delete(r.st().personnel, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}

	st := r.st()
	st.edu = filter(st.edu, func(q models.EducationalQualification) bool { return !removed[q.PersonnelID] })
	st.prof = filter(st.prof, func(q models.ProfessionalQualification) bool { return !removed[q.PersonnelID] })
	st.exp = filter(st.exp, func(e models.ExperienceDetail) bool { return !removed[e.PersonnelID] })
	for i := range st.attachments {
		if id := st.attachments[i].PersonnelID; id != nil && removed[*id] {
			st.attachments[i].PersonnelID = nil
		}
	}
	return nil
}

func (r *memRepo) ReplaceQualifications(appID, personnelID string, edu []models.EducationalQualification, prof []models.ProfessionalQualification) error {
	if err := r.write("ReplaceQualifications"); err != nil {
		return err
	}
	if err := r.requirePersonnel(appID, personnelID); err != nil {
		return err
	}
	st := r.st()
	st.edu = filter(st.edu, func(q models.EducationalQualification) bool {
		return q.AppID != appID || q.PersonnelID != personnelID
	})
	st.prof = filter(st.prof, func(q models.ProfessionalQualification) bool {
		return q.AppID != appID || q.PersonnelID != personnelID
	})
	for _, q := range edu {
		q.ID = r.id()
		st.edu = append(st.edu, q)
	}
	for _, q := range prof {
		q.ID = r.id()
		st.prof = append(st.prof, q)
	}
	return nil
}

func (r *memRepo) ReplaceExperience(appID, personnelID string, exp []models.ExperienceDetail) error {
	if err := r.write("ReplaceExperience"); err != nil {
		return err
	}
	if err := r.requirePersonnel(appID, personnelID); err != nil {
		return err
	}
	st := r.st()
	st.exp = filter(st.exp, func(e models.ExperienceDetail) bool {
		return e.AppID != appID || e.PersonnelID != personnelID
	})
	for _, e := range exp {
		e.ID = r.id()
		st.exp = append(st.exp, e)
	}
	return nil
}

func (r *memRepo) FindBackground(appID string) (*models.BackgroundInformation, error) {
	b, ok := r.st().background[appID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &b, nil
}

func (r *memRepo) UpsertBackground(info *models.BackgroundInformation) error {
	if err := r.write("UpsertBackground"); err != nil {
		return err
	}
	if err := r.requireApp(info.AppID); err != nil {
		return err
	}
	row := *info
	if existing, ok := r.st().background[info.AppID]; ok {
		row.ID = existing.ID
	} else {
		row.ID = r.id()
	}
	r.st().background[info.AppID] = row
	return nil
}

func (r *memRepo) CreateAttachments(attachments []models.Attachment) error {
	if err := r.write("CreateAttachments"); err != nil {
		return err
	}
	for _, a := range attachments {
		if err := r.requireApp(a.AppID); err != nil {
			return err
		}
		if a.PersonnelID != nil {
			if err := r.requirePersonnel(a.AppID, *a.PersonnelID); err != nil {
				return err
			}
		}
		a.ID = r.id()
		r.st().attachments = append(r.st().attachments, a)
	}
	return nil
}

func filter[T any](rows []T, keep func(T) bool) []T {
	out := rows[:0:0]
	for _, row := range rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return out
}

var _ services.OnboardingStore = (*memStore)(nil)
