// Defines the Packet and the Item variant that rides the scheduler channels.
// End-of-stream and end-of-stage markers travel in-band with the data so that
// they stay ordered relative to the packets before them.

package sim

import "fmt"

// Legacy numeric sentinels used by the packet-trace tooling.
// They only appear when an Item is printed; routing never inspects them.
const (
	EndOfStreamRank = -1
	EndOfStageRank  = -2
)

// Packet is the unit of scheduling: a rank and an arrival sequence id.
// Ranks are in [1, maxRank]; ids increase strictly in generation order.
type Packet struct {
	Rank int
	ID   float64
}

func (p Packet) String() string {
	return fmt.Sprintf("Rank: %d, ID: %f", p.Rank, p.ID)
}

// ItemKind tags the variant held by an Item.
type ItemKind int

const (
	// ItemData carries a real packet.
	ItemData ItemKind = iota
	// ItemEndOfStream marks the end of the global packet stream.
	ItemEndOfStream
	// ItemEndOfStage marks the end of the stream between stage 1 and stage 2.
	ItemEndOfStage
)

func (k ItemKind) String() string {
	switch k {
	case ItemData:
		return "data"
	case ItemEndOfStream:
		return "end-of-stream"
	case ItemEndOfStage:
		return "end-of-stage"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// Item is what flows through input channels and output queues.
// Packet is meaningful only when Kind == ItemData.
type Item struct {
	Kind   ItemKind
	Packet Packet
}

// Data wraps a packet.
func Data(p Packet) Item {
	return Item{Kind: ItemData, Packet: p}
}

// EndOfStream returns the global termination marker.
func EndOfStream() Item {
	return Item{Kind: ItemEndOfStream}
}

// EndOfStage returns the stage-1 to stage-2 termination marker.
func EndOfStage() Item {
	return Item{Kind: ItemEndOfStage}
}

// IsData reports whether the item carries a packet.
func (it Item) IsData() bool {
	return it.Kind == ItemData
}

func (it Item) String() string {
	switch it.Kind {
	case ItemData:
		return it.Packet.String()
	case ItemEndOfStream:
		return fmt.Sprintf("Rank: %d, ID: %d", EndOfStreamRank, EndOfStreamRank)
	case ItemEndOfStage:
		return fmt.Sprintf("Rank: %d, ID: %d", EndOfStageRank, EndOfStageRank)
	default:
		return it.Kind.String()
	}
}
