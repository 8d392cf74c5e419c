package health

// Profile identifies a population group with its own exposure
// thresholds.
type Profile string

const (
	ProfileSensitive Profile = "sensitive"
	ProfileAthlete   Profile = "athlete"
	ProfileElderly   Profile = "elderly"
	ProfileParent    Profile = "parent"
)

// Profiles lists the supported groups in menu order.
var Profiles = []Profile{ProfileSensitive, ProfileAthlete, ProfileElderly, ProfileParent}

// Advice returns the recommendation for a profile at the given PM2.5
// level. Unknown profiles fall back to the sensitive thresholds, the
// most conservative ones.
func Advice(profile Profile, pm25 float64) string {
	switch profile {
	case ProfileAthlete:
		if pm25 <= 25 {
			return "OK for light training"
		}
		return "Train indoors today"
	case ProfileElderly:
		if pm25 <= 15 {
			return "Safe for short walks"
		}
		return "Remain indoors"
	case ProfileParent:
		switch {
		case pm25 <= 15:
			return "Safe for outdoor play"
		case pm25 <= 25:
			return "Limit outdoor play to 1 hour"
		default:
			return "Keep children indoors"
		}
	default:
		switch {
		case pm25 <= 15:
			return "Generally safe, keep medication handy"
		case pm25 <= 25:
			return "Limit outdoor time, keep windows closed"
		default:
			return "Stay indoors, use air purifier"
		}
	}
}
