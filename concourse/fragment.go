package concourse

// Fragment is a partial pipeline: the resource types, resources and jobs
// contributed by one concern. Fragments merge into a complete document; two
// fragments may declare the same resource (a shared git repo, a shared
// notification hook) and the merge deduplicates by name.
type Fragment struct {
	ResourceTypes []ResourceType
	Resources     []Resource
	Jobs          []Job
}

// MergeFragments combines fragments into one. Resource types and resources
// are deduplicated by name with the first occurrence winning, preserving
// encounter order; job lists are concatenated in argument order. Merging
// nothing yields an empty, valid fragment.
func MergeFragments(fragments ...Fragment) Fragment {
	var merged Fragment
	seenTypes := make(map[Identifier]bool)
	seenResources := make(map[Identifier]bool)

	for _, f := range fragments {
		for _, rt := range f.ResourceTypes {
			if seenTypes[rt.Name] {
				continue
			}
			seenTypes[rt.Name] = true
			merged.ResourceTypes = append(merged.ResourceTypes, rt)
		}
		for _, r := range f.Resources {
			if seenResources[r.Name] {
				continue
			}
			seenResources[r.Name] = true
			merged.Resources = append(merged.Resources, r)
		}
		merged.Jobs = append(merged.Jobs, f.Jobs...)
	}
	return merged
}

// Merge is MergeFragments with the receiver first.
func (f Fragment) Merge(others ...Fragment) Fragment {
	return MergeFragments(append([]Fragment{f}, others...)...)
}

// JobNames returns the names of the fragment's jobs in declaration order,
// for building group configs.
func (f Fragment) JobNames() []Identifier {
	names := make([]Identifier, 0, len(f.Jobs))
	for _, j := range f.Jobs {
		names = append(names, j.Name)
	}
	return names
}

// Pipeline promotes the fragment to a full pipeline document. The result is
// not validated; call Pipeline.Validate or Pipeline.Write.
func (f Fragment) Pipeline() Pipeline {
	return Pipeline{
		ResourceTypes: f.ResourceTypes,
		Resources:     f.Resources,
		Jobs:          f.Jobs,
	}
}
