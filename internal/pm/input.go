package pm

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"pm-tracker-backend/internal/model"
	"pm-tracker-backend/internal/parse"
	"pm-tracker-backend/internal/sheet"
)

// MachineInput is the full field set of a machine, as accepted on creation
// and from import rows.
type MachineInput struct {
	IDMsn        string       `json:"idMsn" validate:"required,max=128"`
	Alamat       string       `json:"alamat" validate:"required"`
	Pengelola    string       `json:"pengelola" validate:"required"`
	PeriodePM    *string      `json:"periodePM" validate:"omitempty,max=128"`
	TglSelesaiPM *string      `json:"tglSelesaiPM" validate:"omitempty,max=64"`
	Status       model.Status `json:"status" validate:"omitempty,oneof=Outstanding Done"`
	Teknisi      string       `json:"teknisi" validate:"required"`
}

// MachinePatch is a partial field set. Nil fields are left unchanged;
// present text fields must not be empty.
type MachinePatch struct {
	IDMsn        *string       `json:"idMsn" validate:"omitempty,min=1,max=128"`
	Alamat       *string       `json:"alamat" validate:"omitempty,min=1"`
	Pengelola    *string       `json:"pengelola" validate:"omitempty,min=1"`
	PeriodePM    *string       `json:"periodePM" validate:"omitempty,max=128"`
	TglSelesaiPM *string       `json:"tglSelesaiPM" validate:"omitempty,max=64"`
	Status       *model.Status `json:"status" validate:"omitempty,oneof=Outstanding Done"`
	Teknisi      *string       `json:"teknisi" validate:"omitempty,min=1"`
}

// EditInput corrects the descriptive fields of a machine.
type EditInput struct {
	Alamat    *string `json:"alamat"`
	Pengelola *string `json:"pengelola"`
	Teknisi   *string `json:"teknisi"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (in *MachineInput) normalize() {
	in.IDMsn = strings.TrimSpace(in.IDMsn)
	in.Alamat = strings.TrimSpace(in.Alamat)
	in.Pengelola = strings.TrimSpace(in.Pengelola)
	in.Teknisi = strings.TrimSpace(in.Teknisi)
	in.PeriodePM = trimOptional(in.PeriodePM)
	in.TglSelesaiPM = trimOptional(in.TglSelesaiPM)
	if in.Status == "" {
		in.Status = model.StatusOutstanding
	}
}

func (in MachineInput) toModel() *model.PmMachine {
	return &model.PmMachine{
		IDMsn:        in.IDMsn,
		Alamat:       in.Alamat,
		Pengelola:    in.Pengelola,
		PeriodePM:    in.PeriodePM,
		TglSelesaiPM: in.TglSelesaiPM,
		Status:       in.Status,
		Teknisi:      in.Teknisi,
	}
}

// columns returns every field of the input keyed by column name, with nil
// for absent optional values.
func (in MachineInput) columns() map[string]any {
	return map[string]any{
		"id_msn":         in.IDMsn,
		"alamat":         in.Alamat,
		"pengelola":      in.Pengelola,
		"periode_pm":     optionalValue(in.PeriodePM),
		"tgl_selesai_pm": optionalValue(in.TglSelesaiPM),
		"status":         in.Status,
		"teknisi":        in.Teknisi,
	}
}

func (p *MachinePatch) normalize() {
	p.IDMsn = trimPresent(p.IDMsn)
	p.Alamat = trimPresent(p.Alamat)
	p.Pengelola = trimPresent(p.Pengelola)
	p.Teknisi = trimPresent(p.Teknisi)
	p.PeriodePM = trimPresent(p.PeriodePM)
	p.TglSelesaiPM = trimPresent(p.TglSelesaiPM)
}

func (p MachinePatch) columns() map[string]any {
	cols := make(map[string]any)
	if p.IDMsn != nil {
		cols["id_msn"] = *p.IDMsn
	}
	if p.Alamat != nil {
		cols["alamat"] = *p.Alamat
	}
	if p.Pengelola != nil {
		cols["pengelola"] = *p.Pengelola
	}
	if p.PeriodePM != nil {
		cols["periode_pm"] = optionalValue(p.PeriodePM)
	}
	if p.TglSelesaiPM != nil {
		cols["tgl_selesai_pm"] = optionalValue(p.TglSelesaiPM)
	}
	if p.Status != nil {
		cols["status"] = *p.Status
	}
	if p.Teknisi != nil {
		cols["teknisi"] = *p.Teknisi
	}
	return cols
}

// inputFromRow maps an import row onto the creation schema. Missing
// optional values default to nil and a missing status to Outstanding.
func inputFromRow(r sheet.Row) MachineInput {
	in := MachineInput{
		IDMsn:        r.Get(parse.FieldIDMsn),
		Alamat:       r.Get(parse.FieldAlamat),
		Pengelola:    r.Get(parse.FieldPengelola),
		PeriodePM:    nonEmpty(r.Get(parse.FieldPeriodePM)),
		TglSelesaiPM: nonEmpty(r.Get(parse.FieldTglSelesaiPM)),
		Status:       canonicalStatus(r.Get(parse.FieldStatus)),
		Teknisi:      r.Get(parse.FieldTeknisi),
	}
	in.normalize()
	return in
}

// canonicalStatus accepts spreadsheet statuses in any letter case.
func canonicalStatus(s string) model.Status {
	for _, known := range []model.Status{model.StatusOutstanding, model.StatusDone} {
		if strings.EqualFold(s, string(known)) {
			return known
		}
	}
	return model.Status(s)
}

// trimOptional trims s and maps empty values to nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return nonEmpty(strings.TrimSpace(*s))
}

// trimPresent trims s but keeps an empty value present.
func trimPresent(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalValue(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
