package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/media-edge-backend/internal/conf"
)

// corsPolicy 启动时根据配置生成，之后只读
type corsPolicy struct {
	anyOrigin     bool
	origins       map[string]struct{}
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(cfg conf.CORSConfig) corsPolicy {
	p := corsPolicy{
		origins:       make(map[string]struct{}, len(cfg.AllowOrigins)),
		allowMethods:  strings.Join(cfg.AllowMethods, ", "),
		allowHeaders:  strings.Join(cfg.AllowHeaders, ", "),
		exposeHeaders: strings.Join(cfg.ExposeHeaders, ", "),
	}
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			p.anyOrigin = true
		}
		p.origins[o] = struct{}{}
	}
	if cfg.MaxAge > 0 {
		p.maxAge = strconv.Itoa(int(cfg.MaxAge / time.Second))
	}
	return p
}

// CORS 跨域中间件；每个响应都带跨域头，OPTIONS 直接返回 204
func CORS(cfg conf.CORSConfig) gin.HandlerFunc {
	p := newCORSPolicy(cfg)

	return func(c *gin.Context) {
		h := c.Writer.Header()

		switch origin := c.Request.Header.Get("Origin"); {
		case p.anyOrigin:
			h.Set("Access-Control-Allow-Origin", "*")
		case origin != "":
			if _, ok := p.origins[origin]; ok {
				h.Set("Access-Control-Allow-Origin", origin)
			}
			h.Add("Vary", "Origin")
		}
		if p.allowMethods != "" {
			h.Set("Access-Control-Allow-Methods", p.allowMethods)
		}
		if p.allowHeaders != "" {
			h.Set("Access-Control-Allow-Headers", p.allowHeaders)
		}
		if p.exposeHeaders != "" {
			h.Set("Access-Control-Expose-Headers", p.exposeHeaders)
		}

		if c.Request.Method == http.MethodOptions {
			if p.maxAge != "" {
				h.Set("Access-Control-Max-Age", p.maxAge)
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
