package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	FacilityKeyPrefix     = "facility:%d"
	FacilityListPrefix    = "facilities:%s"
	RequestKeyPrefix      = "request:%d"
	DistrictListKeyConst  = "districts:all"
	RegionListKeyConst    = "regions:all"
	SubcountyListPrefix   = "subcounties:district:%d"
	UserKeyPrefix         = "user:%d"
)

const (
	FacilityTTL  = 10 * time.Minute
	AdminUnitTTL = 30 * time.Minute
	RequestTTL   = 2 * time.Minute
	UserTTL      = 5 * time.Minute
)

func FacilityKey(facilityID uint) string {
	return fmt.Sprintf(FacilityKeyPrefix, facilityID)
}

func FacilityListKey(filterHash string) string {
	return fmt.Sprintf(FacilityListPrefix, filterHash)
}

func RequestKey(requestID uint) string {
	return fmt.Sprintf(RequestKeyPrefix, requestID)
}

func RegionListKey() string {
	return RegionListKeyConst
}

func DistrictListKey() string {
	return DistrictListKeyConst
}

func SubcountyListKey(districtID uint) string {
	return fmt.Sprintf(SubcountyListPrefix, districtID)
}

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateFacility(ctx context.Context, facilityID uint) {
	Invalidate(ctx, FacilityKey(facilityID))
	InvalidateFacilityLists(ctx)
}

// InvalidateFacilityLists drops every cached facility list page.
func InvalidateFacilityLists(ctx context.Context) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, "facilities:*", 100).Iterator()
	for iter.Next(ctx) {
		client.Del(ctx, iter.Val())
	}
}

func InvalidateRequest(ctx context.Context, requestID uint) {
	Invalidate(ctx, RequestKey(requestID))
}

func InvalidateAdminUnits(ctx context.Context) {
	Invalidate(ctx, RegionListKey())
	Invalidate(ctx, DistrictListKey())
}
