package classification

const (
	InputWidth    = 224
	InputHeight   = 224
	InputChannels = 3

	// DefaultModelFile is looked up under <install-root>/public/models.
	DefaultModelFile = "FoodResnet.onnx"
)

// ChannelOrder selects how color channels are laid out in the innermost
// tensor axis.
type ChannelOrder string

const (
	// OrderBGR matches the OpenCV decoder the model was trained behind.
	OrderBGR ChannelOrder = "bgr"
	OrderRGB ChannelOrder = "rgb"
)

func ParseChannelOrder(s string) (ChannelOrder, bool) {
	switch ChannelOrder(s) {
	case OrderBGR, OrderRGB:
		return ChannelOrder(s), true
	}
	return "", false
}
