package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/tremor/engine/core"
	"github.com/spaghettifunk/tremor/engine/renderer/metadata"
)

type FrameState int

const (
	FRAME_STATE_IDLE FrameState = iota
	FRAME_STATE_ACQUIRING
	FRAME_STATE_RECORDING
	FRAME_STATE_SUBMITTED
	FRAME_STATE_PRESENTING
)

func (s FrameState) String() string {
	switch s {
	case FRAME_STATE_IDLE:
		return "idle"
	case FRAME_STATE_ACQUIRING:
		return "acquiring"
	case FRAME_STATE_RECORDING:
		return "recording"
	case FRAME_STATE_SUBMITTED:
		return "submitted"
	case FRAME_STATE_PRESENTING:
		return "presenting"
	}
	return fmt.Sprintf("frame state %d", int(s))
}

var errNotRecording = fmt.Errorf("%w: no frame is being recorded", core.ErrInvalidInput)

/**
 * @brief Waits for the previous frame, acquires the next presentable image
 * and opens the render pass. Every geometry cursor is rewound.
 */
func (vr *VulkanRenderer) BeginFrame() {
	if !vr.context.Active {
		return
	}
	if err := vr.beginFrame(); err != nil {
		vr.fail("BeginFrame", err)
	}
}

func (vr *VulkanRenderer) beginFrame() error {
	if vr.frameState != FRAME_STATE_IDLE {
		return fmt.Errorf("%w: frame begun while %s", core.ErrInvalidInput, vr.frameState)
	}

	vr.frameState = FRAME_STATE_ACQUIRING
	if err := vr.frames.WaitFrameFence(FENCE_TIMEOUT_NS); err != nil {
		return err
	}
	if err := vr.frames.ResetFrameFence(); err != nil {
		return err
	}
	imageIndex, err := vr.frames.AcquireImage()
	if err != nil {
		return err
	}
	vr.context.ImageIndex = imageIndex

	if err := vr.frames.BeginRecording(imageIndex); err != nil {
		return err
	}

	vr.world.DirtyDepthAttachment = false
	vr.context.Geometry.Stream.Reset()
	vr.frameState = FRAME_STATE_RECORDING
	return nil
}

/**
 * @brief Closes the render pass, runs the gamma pass into the acquired image,
 * submits the frame and queues it for presentation.
 */
func (vr *VulkanRenderer) EndFrame() {
	if !vr.context.Active {
		return
	}
	if err := vr.endFrame(); err != nil {
		vr.fail("EndFrame", err)
	}
}

func (vr *VulkanRenderer) endFrame() error {
	context := vr.context
	if vr.frameState != FRAME_STATE_RECORDING {
		return errNotRecording
	}

	gamma := gammaPushConstants(context.FramebufferWidth, context.FramebufferHeight, vr.cfg.ShaderGamma, vr.cfg.IgnoreHWGamma)
	if err := vr.frames.EndRecording(gamma); err != nil {
		return err
	}
	if err := vr.frames.Submit(context.ImageIndex); err != nil {
		return err
	}
	vr.frameState = FRAME_STATE_SUBMITTED

	vr.frameState = FRAME_STATE_PRESENTING
	if err := vr.frames.Present(context.ImageIndex); err != nil {
		return err
	}
	vr.frameState = FRAME_STATE_IDLE
	vr.FrameNumber++
	return nil
}

// clearAttachmentsFor lists the attachments ClearAttachments clears. Depth
// clears to 1; the stencil aspect is included when shadows write stencil.
func clearAttachmentsFor(flags metadata.ClearFlags, rgba [4]float32, shadows int) []vk.ClearAttachment {
	var attachments []vk.ClearAttachment
	if flags&metadata.CLEAR_DEPTH != 0 {
		aspect := vk.ImageAspectDepthBit
		if shadows == 2 {
			aspect |= vk.ImageAspectStencilBit
		}
		attachment := vk.ClearAttachment{AspectMask: vk.ImageAspectFlags(aspect)}
		attachment.ClearValue.SetDepthStencil(1, 0)
		attachments = append(attachments, attachment)
	}
	if flags&metadata.CLEAR_COLOR != 0 {
		attachment := vk.ClearAttachment{
			AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ColorAttachment: 0,
		}
		attachment.ClearValue.SetColor(rgba[:])
		attachments = append(attachments, attachment)
	}
	return attachments
}

/**
 * @brief Clears the depth and/or color attachments inside the current
 * scissor rectangle. No flags is a no-op.
 */
func (vr *VulkanRenderer) ClearAttachments(flags metadata.ClearFlags, rgba [4]float32) {
	if !vr.context.Active || flags&(metadata.CLEAR_DEPTH|metadata.CLEAR_COLOR) == 0 {
		return
	}
	if vr.frameState != FRAME_STATE_RECORDING {
		vr.fail("ClearAttachments", errNotRecording)
		return
	}

	attachments := clearAttachmentsFor(flags, rgba, vr.cfg.Shadows)
	vr.frames.ClearAttachments(attachments, scissorRect(&vr.state, vr.context.FramebufferWidth, vr.context.FramebufferHeight))
}

/**
 * @brief Streams the positions and indexes of the next draw, binds them and
 * pushes the transform of the current draw state.
 */
func (vr *VulkanRenderer) BindGeometry(xyz [][4]float32, indexes []uint32) {
	if !vr.context.Active {
		return
	}
	if err := vr.bindGeometry(xyz, indexes); err != nil {
		vr.fail("BindGeometry", err)
	}
}

func (vr *VulkanRenderer) bindGeometry(xyz [][4]float32, indexes []uint32) error {
	if vr.frameState != FRAME_STATE_RECORDING {
		return errNotRecording
	}
	context := vr.context

	bound, err := context.Geometry.Stream.WriteGeometry(xyz, indexes)
	if err != nil {
		return err
	}
	push, size := pushConstants(&vr.state, context.FramebufferWidth, context.FramebufferHeight, vr.cfg.ZNear)
	vr.frames.BindGeometry(bound, push[:], size)
	return nil
}

/**
 * @brief Streams one shading pass of the geometry bound last and draws it
 * with pipeline and the images bound to the texture units.
 */
func (vr *VulkanRenderer) ShadeGeometry(pipeline vk.Pipeline, in *metadata.ShadeInput) {
	if !vr.context.Active {
		return
	}
	if err := vr.shadeGeometry(pipeline, in); err != nil {
		vr.fail("ShadeGeometry", err)
	}
}

func (vr *VulkanRenderer) shadeGeometry(pipeline vk.Pipeline, in *metadata.ShadeInput) error {
	if vr.frameState != FRAME_STATE_RECORDING {
		return errNotRecording
	}
	context := vr.context
	stream := context.Geometry.Stream

	offsets, err := stream.WriteShade(in)
	if err != nil {
		return err
	}
	setCount := 1
	if in.Multitexture {
		setCount = 2
	}

	call := drawCall{
		Pipeline:       pipeline,
		Shade:          offsets,
		DescriptorSets: vr.world.CurrentDescriptorSets[:setCount],
		Scissor:        scissorRect(&vr.state, context.FramebufferWidth, context.FramebufferHeight),
		Viewport:       viewportFor(&vr.state, in.DepthRange, context.FramebufferWidth, context.FramebufferHeight),
		DepthBias:      in.PolygonOffset,
		BiasConstant:   vr.cfg.OffsetUnits,
		BiasSlope:      vr.cfg.OffsetFactor,
		Indexed:        in.Indexed,
		Count:          stream.VertexCount(),
	}
	if in.Indexed {
		call.Count = stream.IndexCount()
	}
	vr.frames.Draw(call)
	vr.world.DirtyDepthAttachment = true
	return nil
}
