package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

var uniformEntry = wgpu.BindGroupLayoutEntry{
	Binding:    0,
	Visibility: wgpu.ShaderStageFragment,
	Buffer: wgpu.BufferBindingLayout{
		Type: wgpu.BufferBindingTypeUniform,
	},
}

func samplerEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Sampler: wgpu.SamplerBindingLayout{
			Type: wgpu.SamplerBindingTypeFiltering,
		},
	}
}

func textureEntry(binding uint32) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageFragment,
		Texture: wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeFloat,
			ViewDimension: wgpu.TextureViewDimension2D,
		},
	}
}

// buildPipelines compiles the shader modules and creates every render
// pipeline the passes use. Pipelines targeting the window surface are
// only built when a surface exists.
func (b *Backend) buildPipelines() error {
	developMod, err := b.shaderModule("develop", developWGSL)
	if err != nil {
		return err
	}
	defer developMod.Release()
	passthroughMod, err := b.shaderModule("passthrough", passthroughWGSL)
	if err != nil {
		return err
	}
	defer passthroughMod.Release()
	blurMod, err := b.shaderModule("blur", blurWGSL)
	if err != nil {
		return err
	}
	defer blurMod.Release()
	stampMod, err := b.shaderModule("stamp", stampWGSL)
	if err != nil {
		return err
	}
	defer stampMod.Release()
	shapeMod, err := b.shaderModule("shape", shapeWGSL)
	if err != nil {
		return err
	}
	defer shapeMod.Release()

	b.developLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "develop layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			uniformEntry,
			samplerEntry(1),
			textureEntry(2), // input
			textureEntry(3), // blur base
			textureEntry(4), // curve lut
			textureEntry(5), // mask
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: develop layout: %w", err)
	}
	b.passthroughLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "passthrough layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			samplerEntry(0),
			textureEntry(1),
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: passthrough layout: %w", err)
	}
	b.blurLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "blur layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			uniformEntry,
			samplerEntry(1),
			textureEntry(2),
		},
	})
	if err != nil {
		return fmt.Errorf("webgpu: blur layout: %w", err)
	}
	b.paramLayout, err = b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "param layout",
		Entries: []wgpu.BindGroupLayoutEntry{uniformEntry},
	})
	if err != nil {
		return fmt.Errorf("webgpu: param layout: %w", err)
	}

	addBlend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
	eraseBlend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorZero,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorZero,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}

	mk := func(label string, layout *wgpu.BindGroupLayout, mod *wgpu.ShaderModule,
		fragEntry string, format wgpu.TextureFormat, blend *wgpu.BlendState) (*wgpu.RenderPipeline, error) {
		pl, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label:            label,
			BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: %s pipeline layout: %w", label, err)
		}
		defer pl.Release()
		p, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label:  label,
			Layout: pl,
			Vertex: wgpu.VertexState{
				Module:     mod,
				EntryPoint: "vs_quad",
			},
			Fragment: &wgpu.FragmentState{
				Module:     mod,
				EntryPoint: fragEntry,
				Targets: []wgpu.ColorTargetState{{
					Format:    format,
					Blend:     blend,
					WriteMask: wgpu.ColorWriteMaskAll,
				}},
			},
			Primitive: wgpu.PrimitiveState{
				Topology:  wgpu.PrimitiveTopologyTriangleStrip,
				FrontFace: wgpu.FrontFaceCCW,
				CullMode:  wgpu.CullModeNone,
			},
			Multisample: wgpu.MultisampleState{
				Count: 1,
				Mask:  0xFFFFFFFF,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: %s pipeline: %w", label, err)
		}
		return p, nil
	}

	if b.developTarget, err = mk("develop/target", b.developLayout, developMod,
		"fs_develop", targetFormat, nil); err != nil {
		return err
	}
	if b.maskedTarget, err = mk("masked/target", b.developLayout, developMod,
		"fs_masked", targetFormat, nil); err != nil {
		return err
	}
	if b.passthroughTarget, err = mk("passthrough/target", b.passthroughLayout, passthroughMod,
		"fs_main", targetFormat, nil); err != nil {
		return err
	}
	if b.blurPipeline, err = mk("blur", b.blurLayout, blurMod,
		"fs_main", targetFormat, nil); err != nil {
		return err
	}
	if b.stampAdd, err = mk("stamp/add", b.paramLayout, stampMod,
		"fs_main", targetFormat, addBlend); err != nil {
		return err
	}
	if b.stampErase, err = mk("stamp/erase", b.paramLayout, stampMod,
		"fs_main", targetFormat, eraseBlend); err != nil {
		return err
	}
	if b.shapePipeline, err = mk("shape", b.paramLayout, shapeMod,
		"fs_main", targetFormat, nil); err != nil {
		return err
	}

	if b.surface != nil {
		if b.developSurface, err = mk("develop/surface", b.developLayout, developMod,
			"fs_develop", b.surfaceFormat, nil); err != nil {
			return err
		}
		if b.passthroughSurface, err = mk("passthrough/surface", b.passthroughLayout, passthroughMod,
			"fs_main", b.surfaceFormat, nil); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) shaderModule(label, src string) (*wgpu.ShaderModule, error) {
	mod, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: compile %s: %w", label, err)
	}
	return mod, nil
}
