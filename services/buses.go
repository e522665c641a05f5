package services

import (
	"context"

	"github.com/trezcool/educloud/core/school"
)

type BusService struct {
	Resource[school.Bus]
}

// Location returns the last known position of a bus.
func (svc *BusService) Location(ctx context.Context, busID string) (school.Location, error) {
	env, err := svc.api.Get(ctx, svc.path+pathID(busID)+"/location", nil)
	if err != nil {
		return school.Location{}, err
	}
	return decodeItem[school.Location](env, entLocations.singular)
}

type HistoryFilter struct {
	ListParams
	From string `url:"from,omitempty"`
	To   string `url:"to,omitempty"`
}

// TrackingService is used by drivers to publish the bus position.
type TrackingService struct {
	api   API
	empty *EmptyResults
}

func (svc *TrackingService) PushLocation(ctx context.Context, loc school.Location) error {
	_, err := svc.api.Post(ctx, "/tracking/location", loc)
	return err
}

func (svc *TrackingService) History(ctx context.Context, busID string, filter HistoryFilter) (Page[school.Location], error) {
	return listPage[school.Location](ctx, svc.api, svc.empty, "/tracking/history"+pathID(busID), entLocations, filter)
}
