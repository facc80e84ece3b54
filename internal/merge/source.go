package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sharedparams/internal/definition"
)

// ErrHandoffUsed is returned when a second bundle is sent through a Handoff.
var ErrHandoffUsed = errors.New("handoff already carried a bundle")

// FromDocument returns a bundle of every parameter in doc, in order.
func FromDocument(doc *definition.Document) Bundle {
	return Bundle{Parameters: doc.Parameters()}
}

// yamlBundle is the on-disk shape of a YAML bundle.
type yamlBundle struct {
	Parameters []yamlParameter `yaml:"parameters"`
}

type yamlParameter struct {
	GUID            string `yaml:"guid"`
	Name            string `yaml:"name"`
	Type            string `yaml:"type"`
	DataCategory    string `yaml:"category"`
	Description     string `yaml:"description"`
	Visible         *bool  `yaml:"visible"`
	UserModifiable  *bool  `yaml:"user_modifiable"`
	HideWhenNoValue bool   `yaml:"hide_when_no_value"`
}

// LoadYAMLBundle reads a bundle from YAML:
//
//	parameters:
//	  - name: Width
//	    type: LENGTH
//	    description: Clear opening width
//
// A missing guid is generated. Visible and user_modifiable default to
// true. Types use the persisted tokens and default to TEXT.
func LoadYAMLBundle(r io.Reader) (Bundle, error) {
	var yb yamlBundle
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&yb); err != nil {
		if errors.Is(err, io.EOF) {
			return Bundle{}, nil
		}
		return Bundle{}, fmt.Errorf("parse bundle: %w", err)
	}

	b := Bundle{Parameters: make([]definition.Parameter, 0, len(yb.Parameters))}
	for i, yp := range yb.Parameters {
		p, err := yp.parameter()
		if err != nil {
			return Bundle{}, &definition.ParameterError{Index: i, Name: yp.Name, Err: err}
		}
		b.Parameters = append(b.Parameters, p)
	}
	return b, nil
}

func (yp yamlParameter) parameter() (definition.Parameter, error) {
	if yp.Name == "" {
		return definition.Parameter{}, errors.New("name is required")
	}

	p := definition.Parameter{
		Name:            yp.Name,
		DataCategory:    yp.DataCategory,
		Description:     yp.Description,
		Visible:         yp.Visible == nil || *yp.Visible,
		UserModifiable:  yp.UserModifiable == nil || *yp.UserModifiable,
		HideWhenNoValue: yp.HideWhenNoValue,
	}

	if yp.Type != "" {
		t, err := definition.ParseType(yp.Type)
		if err != nil {
			return definition.Parameter{}, err
		}
		p.Type = t
	}

	if yp.GUID == "" {
		p.GUID = uuid.New()
	} else {
		guid, err := uuid.Parse(yp.GUID)
		if err != nil {
			return definition.Parameter{}, fmt.Errorf("invalid guid %q: %w", yp.GUID, err)
		}
		p.GUID = guid
	}
	return p, nil
}

// Handoff carries exactly one bundle from a producer to a consumer. The
// producer owns the bundle until Send returns; the consumer receives a
// private copy.
type Handoff struct {
	ch   chan Bundle
	once sync.Once
}

// NewHandoff creates an empty handoff.
func NewHandoff() *Handoff {
	return &Handoff{ch: make(chan Bundle, 1)}
}

// Send hands b over without blocking. Only the first call succeeds.
func (h *Handoff) Send(b Bundle) error {
	sent := false
	h.once.Do(func() {
		h.ch <- b.Clone()
		close(h.ch)
		sent = true
	})
	if !sent {
		return ErrHandoffUsed
	}
	return nil
}

// Receive waits for the bundle or for ctx to end. After the bundle has
// been received, further calls return ErrHandoffUsed.
func (h *Handoff) Receive(ctx context.Context) (Bundle, error) {
	select {
	case b, ok := <-h.ch:
		if !ok {
			return Bundle{}, ErrHandoffUsed
		}
		return b, nil
	case <-ctx.Done():
		return Bundle{}, ctx.Err()
	}
}
