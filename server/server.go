package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/webapi"
	"github.com/xxxsen/tgdav/server/middleware"
	"github.com/xxxsen/tgdav/webdav"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	c       *config
	handler http.Handler
	engine  webapi.IWebEngine
}

func newServer(h http.Handler, opts ...Option) *Server {
	return &Server{c: applyOpts(opts...), handler: h}
}

func New(bind string, h http.Handler, opts ...Option) (*Server, error) {
	svr := newServer(h, opts...)
	var err error
	svr.engine, err = webapi.NewEngine("/", bind, webapi.WithRegister(svr.initAPI))
	if err != nil {
		return nil, err
	}
	return svr, nil
}

// Methods lists every verb routed to the webdav handler. SEARCH is routed so
// the handler can answer it instead of the router.
func Methods() []string {
	return append(webdav.BaselineMethods(), webdav.MethodSearch)
}

func (s *Server) initAPI(router *gin.RouterGroup) {
	limitMiddleware := middleware.UploadLimitMiddleware(s.c.maxUploadSize)
	davHandler := gin.WrapH(s.handler)

	prefix := strings.TrimSuffix(webdav.CleanPath(s.c.prefix), "/")
	davRouter := router.Group(prefix, limitMiddleware)
	{
		for _, method := range Methods() {
			davRouter.Handle(method, "/*all", davHandler)
		}
	}
}

func (s *Server) Run() error {
	return s.engine.Run()
}
