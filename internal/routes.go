package internal

import (
	"dsd/internal/controllers"
	"dsd/internal/providers"
	"dsd/internal/structures"
	"net/http"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/dashboards", http.HandlerFunc(apiController.GetDashboards))
	routers.Get("/dashboard", http.HandlerFunc(apiController.GetDashboard))
	routers.Get("/schema", http.HandlerFunc(apiController.GetSchema))
	routers.Post("/load", http.HandlerFunc(apiController.Load))
	routers.Post("/refresh", http.HandlerFunc(apiController.ToggleRefresh))
	routers.Post("/fullscreen", http.HandlerFunc(apiController.ToggleFullscreen))
	routers.Post("/filter", http.HandlerFunc(apiController.SetFilter))
	routers.Post("/widget/delete", http.HandlerFunc(apiController.DeleteWidget))
	routers.Post("/query/execute", http.HandlerFunc(apiController.ExecuteQuery))
	routers.Delete("/query", http.HandlerFunc(apiController.ArchiveQuery))
	routers.Delete("/archive", http.HandlerFunc(apiController.Archive))
	return routers
}
