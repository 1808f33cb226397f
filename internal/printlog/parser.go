package printlog

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Delimiter separates fields in a print log line.
const Delimiter = "╡"

// fieldCount includes the reserved slot after the department id.
const fieldCount = 13

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04:05"
)

// LineError describes the first rule a line violated.
type LineError struct {
	Field string
	Rule  string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("printlog: field %s fails %s", e.Field, e.Rule)
}

func (e *LineError) Unwrap() error {
	return ErrInvalidLine
}

type lineFields struct {
	Server       string `json:"server" validate:"required,max=255"`
	Date         string `json:"date" validate:"required,datetime=02/01/2006"`
	Time         string `json:"time" validate:"required,datetime=15:04:05"`
	Filename     string `json:"filename" validate:"omitempty,max=260"`
	Username     string `json:"username" validate:"required,max=20"`
	CorporateID  string `json:"corporate_id"`
	DepartmentID string `json:"department_id" validate:"omitempty,number"`
	Reserved     string `json:"reserved"`
	Client       string `json:"client" validate:"required,max=255"`
	Printer      string `json:"printer" validate:"required,max=255"`
	FileSize     string `json:"file_size" validate:"omitempty,number"`
	Pages        string `json:"pages" validate:"required,positive"`
	Copies       string `json:"copies" validate:"required,positive"`
}

// Parser splits and validates raw log lines. Safe for concurrent use.
type Parser struct {
	validate *validator.Validate
}

// NewParser builds a Parser with the line rules registered.
func NewParser() *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("positive", func(fl validator.FieldLevel) bool {
		n, err := strconv.ParseInt(fl.Field().String(), 10, 32)
		return err == nil && n > 0
	})
	return &Parser{validate: v}
}

// Parse validates raw and converts it into a Record. Nothing about the line
// is accepted unless every field passes.
func (p *Parser) Parse(raw string) (Record, error) {
	line := strings.TrimRight(raw, "\r\n")
	parts := strings.Split(line, Delimiter)
	if len(parts) != fieldCount {
		return Record{}, &LineError{Field: "line", Rule: fmt.Sprintf("fields=%d", fieldCount)}
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	fields := lineFields{
		Server:       parts[0],
		Date:         parts[1],
		Time:         parts[2],
		Filename:     parts[3],
		Username:     parts[4],
		CorporateID:  parts[5],
		DepartmentID: parts[6],
		Reserved:     parts[7],
		Client:       parts[8],
		Printer:      parts[9],
		FileSize:     parts[10],
		Pages:        parts[11],
		Copies:       parts[12],
	}
	if err := p.validate.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Record{}, &LineError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
		}
		return Record{}, err
	}
	return toRecord(line, fields)
}

func toRecord(line string, f lineFields) (Record, error) {
	date, err := time.ParseInLocation(dateLayout, f.Date, time.UTC)
	if err != nil {
		return Record{}, &LineError{Field: "date", Rule: "datetime"}
	}
	clock, err := time.ParseInLocation(timeLayout, f.Time, time.UTC)
	if err != nil {
		return Record{}, &LineError{Field: "time", Rule: "datetime"}
	}
	rec := Record{
		Line:      line,
		Server:    f.Server,
		Date:      date,
		TimeOfDay: time.Duration(clock.Hour())*time.Hour + time.Duration(clock.Minute())*time.Minute + time.Duration(clock.Second())*time.Second,
		Username:  f.Username,
		Client:    f.Client,
		Printer:   f.Printer,
	}
	if f.Filename != "" {
		name := f.Filename
		rec.Filename = &name
	}
	if f.DepartmentID != "" {
		id, err := strconv.ParseInt(f.DepartmentID, 10, 64)
		if err != nil {
			return Record{}, &LineError{Field: "department_id", Rule: "integer"}
		}
		rec.DepartmentExternalID = &id
	}
	if f.FileSize != "" {
		size, err := strconv.ParseInt(f.FileSize, 10, 64)
		if err != nil {
			return Record{}, &LineError{Field: "file_size", Rule: "integer"}
		}
		rec.FileSize = &size
	}
	// positive already guarantees these parse.
	pages, _ := strconv.Atoi(f.Pages)
	copies, _ := strconv.Atoi(f.Copies)
	rec.Pages = pages
	rec.Copies = copies
	return rec, nil
}
