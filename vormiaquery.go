// Package vormiaquery is a JSON API client with bearer-token injection,
// optional payload encryption, normalized errors and reactive query and
// mutation state.
//
// The implementation lives in internal packages; this package re-exports
// the types and constructors applications need.
//
//	cfg := vormiaquery.DefaultConfig()
//	cfg.BaseURL = "https://api.example.com"
//	c, err := vormiaquery.New(cfg)
//	...
//	env, err := c.Get(ctx, "/api/categories", vormiaquery.WithParam("page", 2))
package vormiaquery

import (
	"github.com/vormiaphp/vormiaquery/internal/cache"
	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/fielderrors"
	"github.com/vormiaphp/vormiaquery/internal/formx"
	"github.com/vormiaphp/vormiaquery/internal/guard"
	"github.com/vormiaphp/vormiaquery/internal/models"
	"github.com/vormiaphp/vormiaquery/internal/provider"
	"github.com/vormiaphp/vormiaquery/internal/reactive"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/services"
	"github.com/vormiaphp/vormiaquery/internal/storage"
)

type (
	Client        = client.Client
	Option        = client.Option
	Spec          = client.Spec
	RequestOption = client.RequestOption
	Envelope      = client.Envelope
	Config        = config.Config

	RequestError = reqerr.RequestError
	ErrorCode    = reqerr.Code

	Query           = reactive.Query
	QueryOptions    = reactive.QueryOptions
	Mutation        = reactive.Mutation
	MutationOptions = reactive.MutationOptions
	Snapshot        = reactive.Snapshot
	Status          = reactive.Status

	FormSpec    = formx.Spec
	FieldErrors = fielderrors.Manager

	Store    = storage.Store
	Cache    = cache.Cache
	EventBus = events.Bus

	User        = models.User
	Credentials = models.Credentials
	SessionInfo = models.SessionInfo
	AuthService = services.AuthService
	GuardRules  = guard.Rules
	GuardResult = guard.Result
)

var (
	// New builds a client; a nil config means defaults.
	New           = client.New
	DefaultConfig = config.Default
	LoadConfig    = config.Load

	WithStore               = client.WithStore
	WithLogger              = client.WithLogger
	WithEvents              = client.WithEvents
	WithHTTPClient          = client.WithHTTPClient
	WithUnauthorizedHandler = client.WithUnauthorizedHandler

	WithParams      = client.WithParams
	WithParam       = client.WithParam
	WithData        = client.WithData
	WithHeader      = client.WithHeader
	WithHeaders     = client.WithHeaders
	WithTimeout     = client.WithTimeout
	WithEncryption  = client.WithEncryption
	WithTransform   = client.WithTransform
	WithCredentials = client.WithCredentials

	NewQuery    = reactive.NewQuery
	NewMutation = reactive.NewMutation
	RefetchAll  = reactive.RefetchAll

	TransformForm  = formx.Apply
	NewFieldErrors = fielderrors.New

	NewMemoryStore = storage.NewMemoryStore
	OpenSQLite     = storage.OpenSQLite
	NewCache       = cache.New
	NewEventBus    = events.NewBus

	NewAuthService = services.NewAuthService
	Authorize      = guard.Evaluate

	Init          = provider.Init
	DefaultClient = provider.Client
	Shutdown      = provider.Shutdown

	AsRequestError = reqerr.As
)
