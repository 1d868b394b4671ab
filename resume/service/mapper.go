// Package service maps a reformulated CV onto the Word template.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cv-mapper/resume/format"
	"cv-mapper/resume/model"
	"cv-mapper/resume/render"
)

const (
	ExperienceStartMarker = "[date_experience]"
	ExperienceEndMarker   = "[env_item]"

	// OutputFileName is the name the rendered document is delivered under.
	OutputFileName = "cv_final.docx"

	// DefaultImageWidth is the width of the picture appended to each experience.
	DefaultImageWidth = 5 * render.EMUsPerInch
)

// Reformulator turns an uploaded resume into CV JSON.
type Reformulator interface {
	Reformulate(ctx context.Context, fileName string, content []byte) ([]byte, error)
}

// Assets are the template inputs shared by every conversion.
type Assets struct {
	Template []byte
	Image    []byte
	// ImageWidth in EMUs; DefaultImageWidth when zero.
	ImageWidth int64
}

// Result is one rendered document.
type Result struct {
	Document    []byte
	Experiences int
	Duration    time.Duration
}

// Mapper renders CVs onto a fixed template. It is safe for concurrent use:
// every call opens its own copy of the template.
type Mapper struct {
	assets Assets
	client Reformulator
}

type mapping struct {
	key   string
	value string
}

// NewMapper checks that the template opens, that its experience block can be
// located and that the image decodes, so a broken asset fails at startup
// rather than after an upstream call. client may be nil for offline use.
func NewMapper(assets Assets, client Reformulator) (*Mapper, error) {
	if len(assets.Template) == 0 {
		return nil, &TemplateError{Err: errors.New("template is empty")}
	}
	if assets.ImageWidth <= 0 {
		assets.ImageWidth = DefaultImageWidth
	}
	doc, err := render.Open(assets.Template)
	if err != nil {
		return nil, &TemplateError{Err: err}
	}
	if _, err := doc.FindBlock(ExperienceStartMarker, ExperienceEndMarker); err != nil {
		return nil, &TemplateError{Err: err}
	}
	if _, _, err := render.CheckPicture(assets.Image); err != nil {
		return nil, &TemplateError{Err: fmt.Errorf("experience image: %w", err)}
	}
	return &Mapper{assets: assets, client: client}, nil
}

// Convert sends the uploaded file to the reformulation service and renders
// the returned CV.
func (m *Mapper) Convert(ctx context.Context, fileName string, content []byte) (Result, error) {
	if m.client == nil {
		return Result{}, &UpstreamServiceError{Err: errors.New("reformulation client is not configured")}
	}
	start := time.Now()
	payload, err := m.client.Reformulate(ctx, fileName, content)
	if err != nil {
		return Result{}, &UpstreamServiceError{Err: err}
	}
	cv, err := model.Decode(payload)
	if err != nil {
		return Result{}, &ParseError{Err: err}
	}
	result, err := m.Render(ctx, cv)
	if err != nil {
		return Result{}, err
	}
	result.Duration = time.Since(start)
	return result, nil
}

// Render fills the template with cv.
func (m *Mapper) Render(ctx context.Context, cv model.CV) (Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	doc, err := render.Open(m.assets.Template)
	if err != nil {
		return Result{}, &TemplateError{Err: err}
	}

	for _, pair := range staticMappings(cv) {
		render.ReplaceEverywhere(doc, pair.key, pair.value)
	}

	if len(cv.Experiences) == 0 {
		if err := doc.RemoveBlock(ExperienceStartMarker, ExperienceEndMarker); err != nil {
			return Result{}, &TemplateError{Err: err}
		}
	} else if err := m.fillExperiences(doc, cv.Experiences); err != nil {
		return Result{}, err
	}

	data, err := doc.Save()
	if err != nil {
		return Result{}, &SerializationError{Err: err}
	}
	return Result{
		Document:    data,
		Experiences: len(cv.Experiences),
		Duration:    time.Since(start),
	}, nil
}

func (m *Mapper) fillExperiences(doc *render.Document, experiences []model.Experience) error {
	blocks, err := doc.DuplicateBlock(ExperienceStartMarker, ExperienceEndMarker, len(experiences))
	if err != nil {
		return &TemplateError{Err: err}
	}
	picture := render.Picture{Data: m.assets.Image, Width: m.assets.ImageWidth}
	for i, exp := range experiences {
		block := blocks[i]
		for _, pair := range experienceMappings(exp) {
			render.ReplaceText(block, pair.key, pair.value)
		}
		if _, err := doc.InsertPictureAfter(block.LastNonBlank(), picture); err != nil {
			return &TemplateError{Err: err}
		}
	}
	return nil
}

func staticMappings(cv model.CV) []mapping {
	return []mapping{
		{"[nom_prenom]", cv.FullName.String()},
		{"[metier]", strings.ToUpper(cv.JobTitle.String())},
		{"[nb_annees]", cv.YearsOfExperience.String()},
		{"[niveau_anglais]", strings.ToLower(cv.EnglishLevel.String())},
		{"[terrain_jeu]", format.ListToText(cv.PlayingField)},
		{"[savoir_faire_metier]", format.ListToText(cv.Skills)},
		{"[categorie_tech ] [technologie]", format.Technologies(cv.Technologies)},
		{"[diplome ], [ecole], [lieu]", format.Formations(cv.Formations)},
	}
}

func experienceMappings(exp model.Experience) []mapping {
	return []mapping{
		{"[date_experience]", format.DateRange(exp.Start.String(), exp.End.String())},
		{"[nom_entreprise]", exp.Company.String()},
		{"[poste]", exp.Role.String()},
		{"[contexte]", exp.Context.String()},
		{"[realisation]", format.ListToText(exp.Achievements)},
		{"[env_item]", exp.Environment.String()},
	}
}
