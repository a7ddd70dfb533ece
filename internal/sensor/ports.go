package sensor

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes one serial port found on the machine.
type PortInfo struct {
	Name        string
	Description string
	IsUSB       bool
	Preferred   bool
}

// ListPorts enumerates the machine's serial ports, marking the ones whose
// description matches a priority keyword (USB-to-UART bridges the sensor
// usually hangs off).
func ListPorts(keywords []string) ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}

	infos := make([]PortInfo, 0, len(ports))
	for _, p := range ports {
		desc := p.Product
		if desc == "" {
			desc = p.Name
		}
		infos = append(infos, PortInfo{
			Name:        p.Name,
			Description: desc,
			IsUSB:       p.IsUSB,
			Preferred:   matchesKeyword(desc+" "+p.Name, keywords),
		})
	}
	return infos, nil
}

// AutodetectPort picks the most likely sensor port: the first port matching
// a priority keyword, else the first port found.
func AutodetectPort(keywords []string) (string, error) {
	ports, err := ListPorts(keywords)
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", errors.New("no serial ports found")
	}

	for _, p := range ports {
		if p.Preferred {
			return p.Name, nil
		}
	}
	return ports[0].Name, nil
}

func matchesKeyword(desc string, keywords []string) bool {
	upper := strings.ToUpper(desc)
	for _, k := range keywords {
		if strings.Contains(upper, strings.ToUpper(k)) {
			return true
		}
	}
	return false
}
