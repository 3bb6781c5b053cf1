package orchestrator

// Leaf task names that are not pipeline runs.
const (
	TaskClean     = "clean"
	TaskVerify    = "verify"
	TaskWebserver = "webserver"
	TaskWatch     = "watch"

	TaskImagesBasic   = "images:basic"
	TaskImagesTinyPNG = "images:tinypng"

	TaskBuild      = "build"
	TaskProduction = "production"
	TaskDefault    = "default"
)

// DefaultGraph returns the built-in task graph.
func DefaultGraph() *TaskGraph {
	return NewTaskGraph().
		Leaf("html", "js", "styles", "images:raster", TaskImagesBasic, TaskImagesTinyPNG, "images:svg",
			"sprites-png", "sprites-svg", "fonts", TaskClean, TaskVerify, TaskWebserver, TaskWatch).
		Parallel("images", "images:raster", "images:svg").
		Parallel("sprites", "sprites-png", "sprites-svg").
		Parallel("assets", "html", "js", "styles", "images", "fonts").
		Sequential("general", "sprites", "assets").
		Sequential(TaskBuild, TaskClean, "general").
		Sequential(TaskProduction, TaskBuild, TaskVerify).
		Parallel("serve", TaskWebserver, TaskWatch).
		Sequential(TaskDefault, TaskBuild, "serve").
		Alias("javascripts", "js").
		Alias("stylesheets", "styles").
		Alias("browserSync", TaskWebserver)
}
