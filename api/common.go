package api

import (
	"fmt"

	"github.com/martini-contrib/render"
)

// JsonErrorf renders a JSON error response, kept verbatim from the
// teacher's helper of the same name and signature.
func JsonErrorf(render render.Render, code int, errStr string, params ...interface{}) {
	render.JSON(code, map[string]string{"error": fmt.Sprintf(errStr, params...)})
}
