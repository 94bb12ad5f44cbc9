package bootstrap

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	accountshttp "github.com/smrs-space/smrs-backend/internal/accounts/http"
	accountsrepo "github.com/smrs-space/smrs-backend/internal/accounts/repository"
	accountssvc "github.com/smrs-space/smrs-backend/internal/accounts/service"
	httpapi "github.com/smrs-space/smrs-backend/internal/api/http"
	"github.com/smrs-space/smrs-backend/internal/api/http/middleware"
	"github.com/smrs-space/smrs-backend/internal/auth"
	"github.com/smrs-space/smrs-backend/internal/mail"
	membershttp "github.com/smrs-space/smrs-backend/internal/members/http"
	membersrepo "github.com/smrs-space/smrs-backend/internal/members/repository"
	memberssvc "github.com/smrs-space/smrs-backend/internal/members/service"
	plagiarismhttp "github.com/smrs-space/smrs-backend/internal/plagiarism/http"
	plagiarismsvc "github.com/smrs-space/smrs-backend/internal/plagiarism/service"
	projectshttp "github.com/smrs-space/smrs-backend/internal/projects/http"
	projectsrepo "github.com/smrs-space/smrs-backend/internal/projects/repository"
	projectssvc "github.com/smrs-space/smrs-backend/internal/projects/service"
	"github.com/smrs-space/smrs-backend/internal/storage"
	storagehttp "github.com/smrs-space/smrs-backend/internal/storage/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Mailer      mail.Publisher
	ObjectStore *storage.ObjectStore
	Plagiarism  *plagiarismsvc.Service
	TokenExpire int
	Log         zerolog.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.Default()
	r.Use(cors.Default())
	r.Use(middleware.RequestID(dep.Log))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.DB, dep.Redis)
	healthHandler.RegisterRoutes(r)

	accountSvc := accountssvc.New(accountsrepo.New(dep.DB), dep.Mailer, dep.TokenExpire, dep.Log)
	projectSvc := projectssvc.New(projectsrepo.New(dep.DB), dep.Log)
	memberSvc := memberssvc.New(membersrepo.New(dep.DB), dep.Log)

	api := r.Group("/api")

	accountshttp.RegisterPublic(api.Group("/accounts"), accountSvc)
	if dep.Plagiarism != nil {
		plagiarismhttp.RegisterWebhook(api.Group("/plagiarism"), dep.Plagiarism)
	}

	authed := api.Group("")
	authed.Use(auth.AuthRequired())

	accountshttp.Register(
		authed.Group("/accounts"),
		authed.Group("/accounts", auth.AdminRequired()),
		accountSvc)
	projectshttp.Register(authed.Group("/projects"), projectSvc)
	membershttp.Register(authed.Group(""), memberSvc)

	if dep.Plagiarism != nil {
		plagiarismhttp.Register(authed.Group("/plagiarism"), dep.Plagiarism)
	}
	if dep.ObjectStore != nil {
		storagehttp.Register(authed.Group("/files"), dep.ObjectStore)
	}

	return r
}
