package scoring

// Default calibrations

// PositioningBands buckets the positioning z-score
func PositioningBands() []Band {
	return []Band{
		{Score: 5, Max: Bound(-1.0)},
		{Score: 10, Min: Bound(-1.0), Max: Bound(0.5)},
		{Score: 15, Min: Bound(0.5), Max: Bound(1.0)},
		{Score: 20, Min: Bound(1.0), Max: Bound(1.5)},
		{Score: 25, Min: Bound(1.5)},
	}
}

// FlowBands buckets the latest distinct holdings change, in ounces
func FlowBands() []Band {
	return []Band{
		{Score: 5, Max: Bound(0)},
		{Score: 10, Min: Bound(0), Max: Bound(500_000)},
		{Score: 15, Min: Bound(500_000), Max: Bound(2_000_000)},
		{Score: 20, Min: Bound(2_000_000), Max: Bound(5_000_000)},
		{Score: 25, Min: Bound(5_000_000)},
	}
}

// PremiumBands buckets the physical premium, in percent
func PremiumBands() []Band {
	return []Band{
		{Score: 5, Max: Bound(5)},
		{Score: 10, Min: Bound(5), Max: Bound(10)},
		{Score: 15, Min: Bound(10), Max: Bound(20)},
		{Score: 20, Min: Bound(20), Max: Bound(35)},
		{Score: 25, Min: Bound(35)},
	}
}
