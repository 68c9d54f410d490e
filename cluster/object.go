package cluster

import (
	"fmt"

	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Object addresses one resource instance by its API group, version, resource
// name (plural, as used in URLs), namespace, and name. Leave Namespace empty
// for cluster-scoped resources and Group empty for the core API group.
type Object struct {
	Group     string
	Version   string
	Resource  string
	Namespace string
	Name      string
}

// GroupVersionResource returns the schema triple used to route dynamic
// client requests.
func (o Object) GroupVersionResource() schema.GroupVersionResource {
	return schema.GroupVersionResource{
		Group:    o.Group,
		Version:  o.Version,
		Resource: o.Resource,
	}
}

// String renders the object for logs: group/version/resource namespace/name.
func (o Object) String() string {
	gvr := o.Version + "/" + o.Resource
	if o.Group != "" {
		gvr = o.Group + "/" + gvr
	}

	if o.Namespace != "" {
		return fmt.Sprintf("%s %s/%s", gvr, o.Namespace, o.Name)
	}

	return fmt.Sprintf("%s %s", gvr, o.Name)
}
