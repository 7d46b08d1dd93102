package middleware

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/manzanit0/studymap/pkg/geolocation"
)

const (
	HeaderLatitude  = "X-Latitude"
	HeaderLongitude = "X-Longitude"
	HeaderAccuracy  = "X-Accuracy"
)

// Position stores the device position sent by the client in the request
// context, where geolocation.FromContext picks it up. Requests with missing
// or malformed coordinates are passed on untouched.
func Position() gin.HandlerFunc {
	return func(c *gin.Context) {
		lat, lng := c.GetHeader(HeaderLatitude), c.GetHeader(HeaderLongitude)
		if lat == "" || lng == "" {
			c.Next()
			return
		}

		p, err := parsePosition(lat, lng, c.GetHeader(HeaderAccuracy))
		if err != nil {
			slog.DebugContext(c.Request.Context(), "ignoring client position", "error", err.Error())
			c.Next()
			return
		}

		ctx := geolocation.WithPosition(c.Request.Context(), p)
		c.Request = c.Request.Clone(ctx)

		c.Next()
	}
}

func parsePosition(lat, lng, accuracy string) (geolocation.Position, error) {
	var p geolocation.Position
	var err error

	if p.Latitude, err = strconv.ParseFloat(lat, 64); err != nil {
		return p, err
	}

	if p.Longitude, err = strconv.ParseFloat(lng, 64); err != nil {
		return p, err
	}

	if p.Latitude < -90 || p.Latitude > 90 || p.Longitude < -180 || p.Longitude > 180 {
		return p, strconv.ErrRange
	}

	if accuracy != "" {
		if p.Accuracy, err = strconv.ParseFloat(accuracy, 64); err != nil {
			return p, err
		}
	}

	return p, nil
}
