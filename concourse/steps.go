package concourse

// Step is one entry in a job plan. The concrete step types below marshal to
// the Concourse step schema; the marker method keeps arbitrary types out of
// job plans.
type Step interface {
	step()
}

// GetStep fetches a resource, optionally gated on upstream jobs via Passed.
type GetStep struct {
	Get       Identifier     `json:"get"`
	Resource  Identifier     `json:"resource,omitempty"`
	Passed    []Identifier   `json:"passed,omitempty"`
	Trigger   bool           `json:"trigger,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Version   string         `json:"version,omitempty"`
	Timeout   string         `json:"timeout,omitempty"`
	OnFailure Step           `json:"on_failure,omitempty"`
}

// PutStep pushes to a resource.
type PutStep struct {
	Put       Identifier     `json:"put"`
	Resource  Identifier     `json:"resource,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	GetParams map[string]any `json:"get_params,omitempty"`
	Inputs    []Identifier   `json:"inputs,omitempty"`
	Timeout   string         `json:"timeout,omitempty"`
	OnFailure Step           `json:"on_failure,omitempty"`
}

// TaskStep executes a task, either inline via Config or from a file in a
// fetched resource.
type TaskStep struct {
	Task          Identifier        `json:"task"`
	Config        *TaskConfig       `json:"config,omitempty"`
	File          string            `json:"file,omitempty"`
	Image         Identifier        `json:"image,omitempty"`
	Privileged    bool              `json:"privileged,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	InputMapping  map[string]string `json:"input_mapping,omitempty"`
	OutputMapping map[string]string `json:"output_mapping,omitempty"`
	Timeout       string            `json:"timeout,omitempty"`
	Attempts      int               `json:"attempts,omitempty"`
}

// LoadVarStep loads a var from a file produced earlier in the plan.
type LoadVarStep struct {
	LoadVar Identifier `json:"load_var"`
	File    string     `json:"file"`
	Format  string     `json:"format,omitempty"`
	Reveal  bool       `json:"reveal,omitempty"`
}

// InParallelStep runs its sub-steps concurrently on the Concourse side.
type InParallelStep struct {
	InParallel ParallelConfig `json:"in_parallel"`
}

// ParallelConfig holds the sub-steps and scheduling knobs of an in_parallel
// step.
type ParallelConfig struct {
	Steps    []Step `json:"steps"`
	Limit    int    `json:"limit,omitempty"`
	FailFast bool   `json:"fail_fast,omitempty"`
}

// DoStep runs its sub-steps in order.
type DoStep struct {
	Do []Step `json:"do"`
}

func (GetStep) step()        {}
func (PutStep) step()        {}
func (TaskStep) step()       {}
func (LoadVarStep) step()    {}
func (InParallelStep) step() {}
func (DoStep) step()         {}

// TaskConfig is the inline configuration of a task step.
type TaskConfig struct {
	Platform      string            `json:"platform"`
	ImageResource *ImageResource    `json:"image_resource,omitempty"`
	Inputs        []TaskInput       `json:"inputs,omitempty"`
	Outputs       []TaskOutput      `json:"outputs,omitempty"`
	Caches        []TaskCache       `json:"caches,omitempty"`
	Params        map[string]string `json:"params,omitempty"`
	Run           Command           `json:"run"`
}

// ImageResource selects the container image a task runs in.
type ImageResource struct {
	Type   string         `json:"type"`
	Source map[string]any `json:"source"`
}

// TaskInput declares an artifact the task consumes.
type TaskInput struct {
	Name     Identifier `json:"name"`
	Path     string     `json:"path,omitempty"`
	Optional bool       `json:"optional,omitempty"`
}

// TaskOutput declares an artifact the task produces.
type TaskOutput struct {
	Name Identifier `json:"name"`
	Path string     `json:"path,omitempty"`
}

// TaskCache declares a path cached between runs of the task.
type TaskCache struct {
	Path string `json:"path"`
}

// Command is the process a task runs.
type Command struct {
	Path string   `json:"path"`
	Args []string `json:"args,omitempty"`
	Dir  string   `json:"dir,omitempty"`
	User string   `json:"user,omitempty"`
}

// RegistryImageResource is a convenience for the common case of running a
// task in an image pulled from a registry.
func RegistryImageResource(repository, tag string) *ImageResource {
	source := map[string]any{"repository": repository}
	if tag != "" {
		source["tag"] = tag
	}
	return &ImageResource{Type: "registry-image", Source: source}
}
