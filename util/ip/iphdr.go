package ip

import (
	"encoding/binary"
	"fmt"
)

/* Standard well-defined IP protocols.  */

const (
	IPPROTO_ICMP = 1
	IPPROTO_TCP  = 6
	IPPROTO_UDP  = 17
)

const MAX_IPHEADER = 20

type IP4Header struct {
	Version uint8
	HeadLen uint8

	Tos     uint8
	TotLen  uint16
	Id      uint16
	FragOff uint16

	TTL      uint8
	Protocal uint8

	Check uint16
	SAddr IP4
	DAddr IP4
}

type IPType int

const (
	_ IPType = iota
	IPv4
	IPv6
	IPOther
)

func IPHeaderType(buff byte) IPType {
	switch buff >> 4 {
	case 4:
		return IPv4
	case 6:
		return IPv6
	default:
		return IPOther
	}
}

// IP4HeaderDecoder returns nil when buff is too short or is not IPv4.
func IP4HeaderDecoder(buff []byte) *IP4Header {
	if len(buff) < MAX_IPHEADER || IPHeaderType(buff[0]) != IPv4 {
		return nil
	}
	iphdr := new(IP4Header)
	return iphdr.Decoder(buff)
}

func (iphdr *IP4Header) Decoder(buff []byte) *IP4Header {
	iphdr.Version = buff[0] >> 4
	iphdr.HeadLen = buff[0] & 0x0f
	iphdr.Tos = buff[1]
	iphdr.TotLen = binary.BigEndian.Uint16(buff[2:])
	iphdr.Id = binary.BigEndian.Uint16(buff[4:])
	iphdr.FragOff = binary.BigEndian.Uint16(buff[6:])
	iphdr.TTL = buff[8]
	iphdr.Protocal = buff[9]
	iphdr.Check = binary.BigEndian.Uint16(buff[10:])
	iphdr.SAddr = IP4(binary.BigEndian.Uint32(buff[12:]))
	iphdr.DAddr = IP4(binary.BigEndian.Uint32(buff[16:]))
	return iphdr
}

func ProtocolName(proto uint8) string {
	switch proto {
	case IPPROTO_ICMP:
		return "icmp"
	case IPPROTO_TCP:
		return "tcp"
	case IPPROTO_UDP:
		return "udp"
	default:
		return fmt.Sprintf("proto(%d)", proto)
	}
}

func (iphdr *IP4Header) String() string {
	return fmt.Sprintf("%s -> %s %s len %d ttl %d",
		iphdr.SAddr, iphdr.DAddr, ProtocolName(iphdr.Protocal), iphdr.TotLen, iphdr.TTL)
}
