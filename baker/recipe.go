package baker

import (
	"encoding/json"
	"fmt"
	"io"
)

// planVersion lets the external executor distinguish plan schema revisions.
const planVersion = 1

// BaseImage selects the AMI a recipe builds on.
type BaseImage struct {
	// NamePattern filters AMIs by name, e.g. "debian-12-amd64-*".
	NamePattern string `json:"name_pattern"`
	// Owner is the AMI owner account or alias.
	Owner string `json:"owner"`
}

// Recipe is a named, ordered list of provisioning steps applied on top of a
// base image.
type Recipe struct {
	Name  string
	Base  BaseImage
	Steps []Step
}

// RecipeError reports a recipe that cannot be rendered into a plan.
type RecipeError struct {
	Recipe string
	Index  int
	Err    error
}

func (e *RecipeError) Error() string {
	return fmt.Sprintf("recipe %q step %d: %v", e.Recipe, e.Index, e.Err)
}

func (e *RecipeError) Unwrap() error { return e.Err }

type planStep struct {
	Op   string `json:"op"`
	Spec Step   `json:"spec"`
}

type planDoc struct {
	Version int        `json:"version"`
	Name    string     `json:"name"`
	Base    BaseImage  `json:"base"`
	Steps   []planStep `json:"steps"`
}

// Validate checks the recipe shape and every step.
func (r Recipe) Validate() error {
	if r.Name == "" {
		return &RecipeError{Recipe: r.Name, Index: -1, Err: fmt.Errorf("recipe name is required")}
	}
	if r.Base.NamePattern == "" || r.Base.Owner == "" {
		return &RecipeError{Recipe: r.Name, Index: -1, Err: fmt.Errorf("base image pattern and owner are required")}
	}
	if len(r.Steps) == 0 {
		return &RecipeError{Recipe: r.Name, Index: -1, Err: fmt.Errorf("recipe has no steps")}
	}
	for i, step := range r.Steps {
		if err := step.Validate(); err != nil {
			return &RecipeError{Recipe: r.Name, Index: i, Err: err}
		}
	}
	return nil
}

// WritePlan validates the recipe and emits the JSON plan consumed by the
// provisioning executor. Step order in the plan matches recipe order.
func (r Recipe) WritePlan(w io.Writer) error {
	if err := r.Validate(); err != nil {
		return err
	}
	doc := planDoc{
		Version: planVersion,
		Name:    r.Name,
		Base:    r.Base,
	}
	for _, step := range r.Steps {
		doc.Steps = append(doc.Steps, planStep{Op: step.Op(), Spec: step})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}
