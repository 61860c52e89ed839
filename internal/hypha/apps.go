package hypha

import (
	"context"
	"encoding/json"

	"github.com/hypha-tools/hypha-apps-go/internal/bundle"
)

// AppControllerService is the well-known id of the server-apps service.
const AppControllerService = "public/server-apps"

// ServicesService is the built-in service registry endpoint.
const ServicesService = "public/services"

// App describes an installed app as reported by the controller.
type App struct {
	ID          string `json:"id"`
	AppID       string `json:"app_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Session describes a running app instance.
type Session struct {
	ID          string    `json:"id"`
	AppID       string    `json:"app_id,omitempty"`
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Services    []Service `json:"services,omitempty"`
}

// Service describes a service registered in the workspace.
type Service struct {
	ID          string         `json:"id"`
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Config      map[string]any `json:"config,omitempty"`
}

// InstallRequest carries the arguments of an app installation.
type InstallRequest struct {
	AppID     string         `json:"app_id"`
	Source    string         `json:"source"`
	Manifest  map[string]any `json:"manifest"`
	Files     []bundle.Entry `json:"files"`
	Overwrite bool           `json:"overwrite"`
}

// AppController wraps the server-apps service object. All methods are
// pass-through argument marshalling; the install/start/stop semantics are
// the server's.
type AppController struct {
	client *Client
}

// AppController returns the server-apps service wrapper.
func (c *Client) AppController() *AppController {
	return &AppController{client: c}
}

// Install installs an app from source, manifest, and packaged files.
func (ac *AppController) Install(ctx context.Context, req InstallRequest) error {
	return ac.client.Call(ctx, AppControllerService, "install", req, nil)
}

// GetAppInfo fetches the raw metadata record of an installed app.
func (ac *AppController) GetAppInfo(ctx context.Context, appID string) (json.RawMessage, error) {
	var info json.RawMessage

	err := ac.client.Call(ctx, AppControllerService, "get_app_info", map[string]any{"app_id": appID}, &info)
	if err != nil {
		return nil, err
	}

	return info, nil
}

// startTimeoutSeconds is how long the server waits for an app to come up.
const startTimeoutSeconds = 30

// Start launches an installed app and returns the new session.
func (ac *AppController) Start(ctx context.Context, appID string) (*Session, error) {
	var session Session

	err := ac.client.Call(ctx, AppControllerService, "start", map[string]any{
		"app_id":  appID,
		"timeout": startTimeoutSeconds,
	}, &session)
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// Stop stops a running session.
func (ac *AppController) Stop(ctx context.Context, sessionID string) error {
	return ac.client.Call(ctx, AppControllerService, "stop", map[string]any{"session_id": sessionID}, nil)
}

// Uninstall removes an installed app.
func (ac *AppController) Uninstall(ctx context.Context, appID string) error {
	return ac.client.Call(ctx, AppControllerService, "uninstall", map[string]any{"app_id": appID}, nil)
}

// ListApps lists installed apps.
func (ac *AppController) ListApps(ctx context.Context) ([]App, error) {
	var apps []App

	if err := ac.client.Call(ctx, AppControllerService, "list_apps", nil, &apps); err != nil {
		return nil, err
	}

	return apps, nil
}

// ListRunning lists running app sessions.
func (ac *AppController) ListRunning(ctx context.Context) ([]Session, error) {
	var sessions []Session

	if err := ac.client.Call(ctx, AppControllerService, "list_running", nil, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

// ListServices lists the services visible in the workspace.
func (c *Client) ListServices(ctx context.Context) ([]Service, error) {
	var services []Service

	if err := c.Call(ctx, ServicesService, "list", nil, &services); err != nil {
		return nil, err
	}

	return services, nil
}
