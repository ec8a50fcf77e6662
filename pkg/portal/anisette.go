package portal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// anisetteJSON is the JSON shape served by anisette providers. The keys match
// the request headers the identity provider expects.
type anisetteJSON struct {
	MachineID       string `json:"X-Apple-I-MD-M"`
	OneTimePassword string `json:"X-Apple-I-MD"`
	LocalUserID     string `json:"X-Apple-I-MD-LU"`
	RoutingInfo     string `json:"X-Apple-I-MD-RINFO"`
	DeviceID        string `json:"X-Mme-Device-Id"`
	SerialNumber    string `json:"X-Apple-I-SRL-NO"`
	Description     string `json:"X-MMe-Client-Info"`
	ClientTime      string `json:"X-Apple-I-Client-Time"`
	Locale          string `json:"X-Apple-Locale"`
	TimeZone        string `json:"X-Apple-I-TimeZone"`
}

// UnmarshalJSON decodes the header-keyed JSON document served by anisette
// providers.
func (d *AnisetteData) UnmarshalJSON(data []byte) error {
	var raw anisetteJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var routingInfo uint64
	if raw.RoutingInfo != "" {
		parsed, err := strconv.ParseUint(raw.RoutingInfo, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse routing info %q: %w", raw.RoutingInfo, err)
		}
		routingInfo = parsed
	}

	date := time.Now().UTC()
	if raw.ClientTime != "" {
		parsed, err := time.Parse(time.RFC3339, raw.ClientTime)
		if err != nil {
			return fmt.Errorf("failed to parse client time %q: %w", raw.ClientTime, err)
		}
		date = parsed
	}

	*d = AnisetteData{
		MachineID:              raw.MachineID,
		OneTimePassword:        raw.OneTimePassword,
		LocalUserID:            raw.LocalUserID,
		RoutingInfo:            routingInfo,
		DeviceUniqueIdentifier: raw.DeviceID,
		DeviceSerialNumber:     raw.SerialNumber,
		DeviceDescription:      raw.Description,
		Date:                   date,
		Locale:                 raw.Locale,
		TimeZone:               raw.TimeZone,
	}
	return nil
}

// MarshalJSON encodes the data back into the header-keyed JSON document.
func (d AnisetteData) MarshalJSON() ([]byte, error) {
	return json.Marshal(anisetteJSON{
		MachineID:       d.MachineID,
		OneTimePassword: d.OneTimePassword,
		LocalUserID:     d.LocalUserID,
		RoutingInfo:     strconv.FormatUint(d.RoutingInfo, 10),
		DeviceID:        d.DeviceUniqueIdentifier,
		SerialNumber:    d.DeviceSerialNumber,
		Description:     d.DeviceDescription,
		ClientTime:      d.Date.UTC().Format(time.RFC3339),
		Locale:          d.Locale,
		TimeZone:        d.TimeZone,
	})
}
