package controllers

import (
	"lorecrafter/auth"
	"lorecrafter/generation"
	"lorecrafter/interceptors"
	"lorecrafter/metrics"
	"lorecrafter/repositories"
	"lorecrafter/services"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	restful "github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP API is assembled from. Store may be
// nil; Metrics may be nil.
type Deps struct {
	Store       repositories.Store
	Sessions    *auth.SessionManager
	Generator   generation.Generator
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	CORSOrigins []string
}

// NewContainer wires services and controllers into a go-restful container
// serving the API, its OpenAPI document and, when Metrics is set, /metrics.
func NewContainer(d Deps) *restful.Container {
	authService := services.NewAuthService(d.Store)
	worldService := services.NewWorldService(d.Store, d.Generator, d.Metrics, d.Logger)

	authController := NewAuthController(authService, d.Sessions, d.Logger)
	worldController := NewWorldController(worldService, d.Sessions, d.Logger)
	healthController := NewHealthController(d.Store)

	container := restful.NewContainer()
	container.Router(restful.CurlyRouter{})
	container.DoNotRecover(false)
	container.RecoverHandler(interceptors.Recoverer(d.Logger))
	container.Filter(interceptors.RequestLogger(d.Logger.Named("http"), d.Metrics))
	container.Filter(interceptors.CORS(container, d.CORSOrigins))
	container.Filter(container.OPTIONSFilter)

	root := new(restful.WebService)
	root.Path("/").Produces(restful.MIME_JSON)
	healthController.RegisterRootRoutes(root)
	container.Add(root)

	api := new(restful.WebService)
	api.Path("/api").Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	healthController.RegisterRoutes(api)
	authController.RegisterRoutes(api)
	worldController.RegisterRoutes(api)
	container.Add(api)

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       "/apidocs.json",
		PostBuildSwaggerObjectHandler: enrichSwaggerObject,
	}))

	if d.Metrics != nil {
		container.Handle("/metrics", d.Metrics.Handler())
	}
	return container
}

func enrichSwaggerObject(swo *spec.Swagger) {
	swo.Info = &spec.Info{
		InfoProps: spec.InfoProps{
			Title:       "LoreCrafter API",
			Description: "Generate and organise the characters and locations of a fictional world",
			Version:     "1.0.0",
		},
	}
	swo.Tags = []spec.Tag{
		{TagProps: spec.TagProps{Name: "auth", Description: "Accounts and sessions"}},
		{TagProps: spec.TagProps{Name: "generate", Description: "LLM generation"}},
		{TagProps: spec.TagProps{Name: "characters", Description: "Owned characters"}},
		{TagProps: spec.TagProps{Name: "locations", Description: "Owned locations"}},
		{TagProps: spec.TagProps{Name: "export", Description: "World export and graph data"}},
		{TagProps: spec.TagProps{Name: "health", Description: "Liveness"}},
	}
}
