// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package presenter

import (
	"strconv"
	"strings"
	"text/template"

	"github.com/wneessen/troncon/internal/troncon"
)

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"coord":       coord,
		"floatFormat": floatFormat,
		"lc":          strings.ToLower,
		"uc":          strings.ToUpper,
	}
}

func coord(p troncon.GeoPoint) string {
	return floatFormat(p.Lat, -1) + ", " + floatFormat(p.Lon, -1)
}

// floatFormat formats val with the given precision, a negative precision uses the smallest number
// of digits necessary.
func floatFormat(val float64, precision int) string {
	return strconv.FormatFloat(val, 'f', precision, 64)
}
