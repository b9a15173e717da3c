package instruments

// DefaultSpecs returns the NSE F&O contract specifications.
func DefaultSpecs() map[string]Spec {
	return defaultSpecs()
}

// defaultSpecs returns the NSE F&O contract specifications.
func defaultSpecs() map[string]Spec {
	return map[string]Spec{
		"NIFTY":      {Underlying: "NIFTY", LotSize: 50, TickSize: 0.05, MarginPercent: 10, StrikeInterval: 100, IsIndex: true},
		"BANKNIFTY":  {Underlying: "BANKNIFTY", LotSize: 25, TickSize: 0.05, MarginPercent: 12, StrikeInterval: 100, IsIndex: true},
		"RELIANCE":   {Underlying: "RELIANCE", LotSize: 250, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 25},
		"TCS":        {Underlying: "TCS", LotSize: 150, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 50},
		"HDFCBANK":   {Underlying: "HDFCBANK", LotSize: 550, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 25},
		"ICICIBANK":  {Underlying: "ICICIBANK", LotSize: 1375, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 10},
		"INFY":       {Underlying: "INFY", LotSize: 300, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 25},
		"HINDUNILVR": {Underlying: "HINDUNILVR", LotSize: 300, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 50},
		"LT":         {Underlying: "LT", LotSize: 125, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 50},
		"SBIN":       {Underlying: "SBIN", LotSize: 1500, TickSize: 0.05, MarginPercent: 15, StrikeInterval: 10},
	}
}
