package cli

import "github.com/nsyszr/flowcount/config"

type Handler struct {
	Migration *MigrateHandler
	Scene     *SceneHandler
}

func NewHandler(c *config.Config) *Handler {
	return &Handler{
		Migration: newMigrateHandler(c),
		Scene:     newSceneHandler(c),
	}
}
