// Package availability computes free appointment slots from the busy
// intervals of a calendar.
//
// EnumerateSlots is a pure function that walks a window in 30-minute steps
// and offers every slot of the requested length that does not overlap a busy
// interval. Engine.FindNextAvailable searches forward day by day, weekdays
// only, at 1-hour granularity inside business hours and returns the first
// free slot it finds.
package availability
