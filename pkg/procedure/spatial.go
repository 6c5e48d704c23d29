package procedure

import (
	"math"

	"github.com/cuemby/nexus/pkg/types"
)

const earthRadiusKm = 6371.0

func nodeLatLon(bag types.PropertyBag) (lat, lon float64, ok bool) {
	lat, latOK := propertyAsFloat(bag, "lat", "latitude")
	lon, lonOK := propertyAsFloat(bag, "lon", "longitude")
	return lat, lon, latOK && lonOK
}

// haversineKm returns the great-circle distance between two lat/lon
// points in kilometers.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

type withinBBoxProcedure struct{}

func (p *withinBBoxProcedure) Name() string { return "gds.spatial.withinBBox" }

func (p *withinBBoxProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "minLat", Type: types.ParamNumber},
			{Name: "minLon", Type: types.ParamNumber},
			{Name: "maxLat", Type: types.ParamNumber},
			{Name: "maxLon", Type: types.ParamNumber},
		},
		Yields: []string{"node"},
	}
}

func (p *withinBBoxProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	minLat, err := argFloat(args, "minLat", 0)
	if err != nil {
		return nil, err
	}
	minLon, err := argFloat(args, "minLon", 0)
	if err != nil {
		return nil, err
	}
	maxLat, err := argFloat(args, "maxLat", 0)
	if err != nil {
		return nil, err
	}
	maxLon, err := argFloat(args, "maxLon", 0)
	if err != nil {
		return nil, err
	}

	ids, err := tx.AllNodeIDs()
	if err != nil {
		return nil, err
	}
	var rows []types.ProcedureResult
	for _, id := range ids {
		bag, err := nodeProperties(tx, id)
		if err != nil {
			return nil, err
		}
		lat, lon, ok := nodeLatLon(bag)
		if !ok {
			continue
		}
		if lat >= minLat && lat <= maxLat && lon >= minLon && lon <= maxLon {
			rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{"node": nodeIDValue(id)}})
		}
	}
	return rows, nil
}

type withinDistanceProcedure struct{}

func (p *withinDistanceProcedure) Name() string { return "gds.spatial.withinDistance" }

func (p *withinDistanceProcedure) Signature() types.ProcedureSignature {
	return types.ProcedureSignature{
		Name: p.Name(),
		Params: []types.ProcedureParameter{
			{Name: "lat", Type: types.ParamNumber},
			{Name: "lon", Type: types.ParamNumber},
			{Name: "distanceKm", Type: types.ParamNumber},
		},
		Yields: []string{"node", "distanceKm"},
	}
}

func (p *withinDistanceProcedure) Execute(tx Tx, args map[string]types.Value) ([]types.ProcedureResult, error) {
	lat, err := argFloat(args, "lat", 0)
	if err != nil {
		return nil, err
	}
	lon, err := argFloat(args, "lon", 0)
	if err != nil {
		return nil, err
	}
	maxDistance, err := argFloat(args, "distanceKm", 0)
	if err != nil {
		return nil, err
	}

	ids, err := tx.AllNodeIDs()
	if err != nil {
		return nil, err
	}
	var rows []types.ProcedureResult
	for _, id := range ids {
		bag, err := nodeProperties(tx, id)
		if err != nil {
			return nil, err
		}
		nlat, nlon, ok := nodeLatLon(bag)
		if !ok {
			continue
		}
		d := haversineKm(lat, lon, nlat, nlon)
		if d <= maxDistance {
			rows = append(rows, types.ProcedureResult{Values: map[string]types.Value{
				"node":       nodeIDValue(id),
				"distanceKm": numberValue(d),
			}})
		}
	}
	return rows, nil
}
