// Package resources provides constructors for the resource kinds the
// pipelines here rely on: git repositories, registry images, time schedules,
// baked AMIs and slack notifications.
package resources

import (
	"github.com/mitodl/ol-infrastructure-sub004/concourse"
)

// GitRepo declares a git resource watching branch, optionally restricted to
// paths so unrelated commits do not trigger builds.
func GitRepo(name concourse.Identifier, uri, branch string, paths []string) concourse.Resource {
	source := map[string]any{
		"uri":    uri,
		"branch": branch,
	}
	if len(paths) > 0 {
		source["paths"] = paths
	}
	return concourse.Resource{
		Name:   name,
		Type:   "git",
		Icon:   "git",
		Source: source,
	}
}

// RegistryImage declares a registry-image resource.
func RegistryImage(name concourse.Identifier, repository, tag string) concourse.Resource {
	source := map[string]any{"repository": repository}
	if tag != "" {
		source["tag"] = tag
	}
	return concourse.Resource{
		Name:   name,
		Type:   "registry-image",
		Icon:   "docker",
		Source: source,
	}
}

// Schedule declares a time resource firing once per interval, e.g. "24h".
func Schedule(name concourse.Identifier, interval string) concourse.Resource {
	return concourse.Resource{
		Name:   name,
		Type:   "time",
		Icon:   "clock-outline",
		Source: map[string]any{"interval": interval},
	}
}

// AmiResourceType declares the custom resource type that tracks AMIs.
func AmiResourceType() concourse.ResourceType {
	return concourse.ResourceType{
		Name:   "amis",
		Type:   "registry-image",
		Source: map[string]any{"repository": "mitodl/concourse-ami-resource"},
	}
}

// Ami declares an AMI resource matching the given name filters. Pair it with
// AmiResourceType in the same fragment.
func Ami(name concourse.Identifier, filters map[string]string) concourse.Resource {
	source := map[string]any{}
	for k, v := range filters {
		source[k] = v
	}
	return concourse.Resource{
		Name:   name,
		Type:   "amis",
		Icon:   "server",
		Source: source,
	}
}

// SlackNotificationResourceType declares the resource type backing slack
// alerts.
func SlackNotificationResourceType() concourse.ResourceType {
	return concourse.ResourceType{
		Name:   "slack-notification",
		Type:   "registry-image",
		Source: map[string]any{"repository": "arbourd/concourse-slack-alert-resource"},
	}
}

// SlackNotification declares a slack alert resource posting to url. The url
// is normally a ((vaulted)) pipeline var rather than a literal webhook.
func SlackNotification(name concourse.Identifier, url string) concourse.Resource {
	return concourse.Resource{
		Name:   name,
		Type:   "slack-notification",
		Icon:   "slack",
		Source: map[string]any{"url": url},
	}
}

// SlackAlert is an on_failure hook posting an alert to a slack resource
// declared with SlackNotification.
func SlackAlert(resource concourse.Identifier, alertType string) concourse.Step {
	return concourse.PutStep{
		Put:    resource,
		Params: map[string]any{"alert_type": alertType},
	}
}
