package redisfactory

import (
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// todo: clients could be created on-demand, but got to figure out how to fail fast if URIs are missing

type Factory struct {
	catalogCache *redis.Client
}

func New() *Factory {
	opt, err := redis.ParseURL(os.Getenv("CATALOG_CACHE_REDIS_URI"))
	if err != nil {
		panic(err)
	}

	opt.DialTimeout = 4 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	return &Factory{
		catalogCache: redis.NewClient(opt),
	}
}

// CatalogCacheClient backs the tour catalog cache. Availability and booking
// traffic never touches it.
func (f *Factory) CatalogCacheClient() *redis.Client {
	return f.catalogCache
}
