package net

import (
	"floorcrawl/internal/game"
	"floorcrawl/internal/level"
	"floorcrawl/internal/render"
)

// buildScene converts wire snapshots into the renderer's input.
func buildScene(grid level.GridSnapshot, snap game.Snapshot) render.Scene {
	scene := render.Scene{
		Grid:        grid,
		PlayerX:     snap.Player.X,
		PlayerY:     snap.Player.Y,
		PlayerHalf:  game.PlayerHalfExtent,
		PlayerShots: projectilePoints(snap.PlayerProjectiles),
		EnemyBolts:  projectilePoints(snap.EnemyProjectiles),
	}
	if len(snap.Enemies) > 0 {
		scene.Enemies = make([]render.Marker, 0, len(snap.Enemies))
		for _, enemy := range snap.Enemies {
			scene.Enemies = append(scene.Enemies, render.Marker{
				X:      enemy.X,
				Y:      enemy.Y,
				Radius: enemy.Radius,
				Color:  enemy.Color,
			})
		}
	}
	return scene
}

func projectilePoints(projectiles []game.Projectile) []render.Point {
	if len(projectiles) == 0 {
		return nil
	}
	points := make([]render.Point, 0, len(projectiles))
	for _, projectile := range projectiles {
		points = append(points, render.Point{X: projectile.X, Y: projectile.Y})
	}
	return points
}
