// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"atelier/internal/adapters/in/http/handler"
	"atelier/internal/adapters/in/http/middleware"
	usecase "atelier/internal/application/usecase"
)

// RouterDeps collects everything the storefront routes need, injected from
// the DI container.
type RouterDeps struct {
	Stores     *usecase.StoreManager
	CheckoutUC *usecase.CheckoutUsecase

	FirebaseAuth *middleware.FirebaseAuthClient
	AllowOrigin  string
	Log          *logrus.Logger
}

// NewRouter builds the full storefront route tree.
// Middleware order matters: CORS answers preflights before auth runs, Recover
// wraps everything inside it, then session and device resolution.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	cart := handler.NewCartHandler(deps.Stores, deps.Log)
	checkout := handler.NewCheckoutHandler(deps.Stores, deps.CheckoutUC, deps.Log)

	sess := &middleware.Session{Auth: deps.FirebaseAuth, Log: deps.Log}

	api := r.PathPrefix("/mall").Subrouter()
	api.Use(mux.MiddlewareFunc(sess.Handler))
	api.Use(mux.MiddlewareFunc(middleware.DeviceID))

	api.HandleFunc("/cart", cart.Get).Methods(http.MethodGet)
	api.HandleFunc("/cart", cart.Clear).Methods(http.MethodDelete)
	api.HandleFunc("/cart/items", cart.AddItem).Methods(http.MethodPost)
	api.HandleFunc("/cart/items", cart.UpdateItem).Methods(http.MethodPatch)
	api.HandleFunc("/cart/items", cart.RemoveItem).Methods(http.MethodDelete)
	api.HandleFunc("/cart/sync", cart.Sync).Methods(http.MethodPost)
	api.HandleFunc("/session/signout", cart.SignOut).Methods(http.MethodPost)
	api.HandleFunc("/checkout/complete", checkout.Complete).Methods(http.MethodPost)

	var h http.Handler = r
	h = middleware.Recover(deps.Log)(h)
	h = middleware.CORS(deps.AllowOrigin)(h)
	return h
}
