// Package cluster turns Kubernetes objects into poll probes.
//
// The client reads arbitrary resources through client-go's dynamic interface,
// so custom resources need no generated clientset. Probe errors are returned
// exactly as the API server produced them; combine with poll.WithRetryable
// and IsNotFound to keep polling through a resource that does not exist yet.
package cluster

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/amp-labs/amp-wait/poll"
)

// Client reads objects through a dynamic Kubernetes client.
type Client struct {
	dyn dynamic.Interface
}

// New wraps an existing dynamic client. This is the injection point for tests
// (client-go's dynamic/fake) and for callers that already hold a client.
func New(dyn dynamic.Interface) *Client {
	return &Client{dyn: dyn}
}

// NewForConfig builds a client from a REST config.
func NewForConfig(config *rest.Config) (*Client, error) {
	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	return New(dyn), nil
}

// NewFromKubeconfig builds a client from a kubeconfig file. An empty path uses
// the default loading rules (KUBECONFIG, then ~/.kube/config), falling back to
// in-cluster configuration when no kubeconfig exists. A non-empty kubeContext
// overrides the file's current context.
func NewFromKubeconfig(path, kubeContext string) (*Client, error) {
	loadingRules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path != "" {
		loadingRules.ExplicitPath = path
	}

	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}

	config, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	return NewForConfig(config)
}

// Get fetches the object once and returns its unstructured content.
// Errors come back unaltered from the API server.
func (c *Client) Get(ctx context.Context, obj Object) (map[string]any, error) {
	fetched, err := c.resource(obj).Get(ctx, obj.Name, metav1.GetOptions{})
	if err != nil {
		return nil, err
	}

	return fetched.Object, nil
}

// Delete removes the object. Deleting an already-absent object returns the
// API server's NotFound error; callers that treat that as success can test
// for it with IsNotFound.
func (c *Client) Delete(ctx context.Context, obj Object) error {
	return c.resource(obj).Delete(ctx, obj.Name, metav1.DeleteOptions{})
}

// Probe adapts the object to a poll probe. Each attempt is one GET; the
// observed value is the object's unstructured content.
//
// Example:
//
//	obj, err := poll.Until(ctx, client.Probe(target), conditions.Ready(),
//	    poll.WithTimeout(15*time.Second),
//	)
func (c *Client) Probe(obj Object) poll.Probe[map[string]any] {
	return func(ctx context.Context) (map[string]any, error) {
		return c.Get(ctx, obj)
	}
}

func (c *Client) resource(obj Object) dynamic.ResourceInterface {
	res := c.dyn.Resource(obj.GroupVersionResource())
	if obj.Namespace != "" {
		return res.Namespace(obj.Namespace)
	}

	return res
}

// IsNotFound reports whether err is the API server's NotFound rejection. It
// is the classifier to pass to poll.WithRetryable when the resource being
// waited on may not have been created yet.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}
