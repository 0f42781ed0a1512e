package httplimit_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/vnykmshr/ratezone/pkg/ratelimit/httplimit"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/service"
)

func ExampleMiddleware() {
	svc, err := service.NewWithConfig(service.Config{
		Zones: []string{"zone=api rate=1r/m"},
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	defer svc.Close()

	hello := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "hello")
	})
	h := httplimit.Middleware(svc, "api", httplimit.HeaderScope("X-API-Key"))(hello)

	for _, key := range []string{"alice", "alice", "bob"} {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if retry := rec.Header().Get("Retry-After"); retry != "" {
			fmt.Println(key, rec.Code, "retry after", retry)
			continue
		}
		fmt.Println(key, rec.Code)
	}

	// Output:
	// alice 200
	// alice 429 retry after 60
	// bob 200
}
