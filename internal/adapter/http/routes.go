package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the API surface on r.
func MountRoutes(r chi.Router, h *Handlers) {
	// Liveness and readiness sit outside /api/v1 and skip auth.
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.APIVersion)

		r.Post("/chat", h.SendChatMessage)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", h.ListConversations)
			r.Get("/{id}", h.GetConversation)
			r.Delete("/{id}", h.DeleteConversation)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Get("/{id}", h.GetTask)
			r.Put("/{id}", h.UpdateTask)
			r.Delete("/{id}", h.DeleteTask)
			r.Post("/{id}/complete", h.CompleteTask)
		})

		// Proxied to the LiteLLM gateway.
		r.Route("/llm", func(r chi.Router) {
			r.Get("/models", h.ListLLMModels)
			r.Get("/health", h.LLMHealth)
			r.Get("/discover", h.DiscoverLLMModels)
		})

		// register, login and refresh are public; the auth middleware
		// exempts them by path.
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.RegisterUser)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)
			r.Get("/me", h.GetCurrentUser)
		})
	})
}
