package fingerprint

import "text/template"

// Each fragment is a text/template (stdlib) parameterized by Profile so
// Compose can stamp a fresh GPU/OS/UA identity into the same script shape
// every time, mirroring the Rust pack's parameterized spoof strings
// (spider_fingerprint/src/spoof_gpu.rs, spoof_webgl.rs,
// spoof_viewport.rs) without carrying their JS byte-for-byte.

var webglTemplate = template.Must(template.New("webgl").Parse(`(()=>{
const spoofParam=(ctor)=>{const orig=ctor.prototype.getParameter;
Object.defineProperty(ctor.prototype,'getParameter',{value:function(p){
switch(p){
case 37445:return{{printf "%q" .GPU.WebGLVendor}};
case 37446:return{{printf "%q" .GPU.WebGLRenderer}};
default:return orig.apply(this,arguments);
}}});};
spoofParam(WebGLRenderingContext);spoofParam(WebGL2RenderingContext);
})();`))

var gpuTemplate = template.Must(template.New("gpu").Parse(`(()=>{
const gpu={
requestAdapter:()=>Promise.resolve({info:{vendor:{{printf "%q" .GPU.WebGPUVendor}},architecture:{{printf "%q" .GPU.WebGPUArchitecture}}},requestDevice:()=>Promise.resolve({})}),
getPreferredCanvasFormat:()=>{{printf "%q" .GPU.CanvasFormat}},
};
Object.defineProperty(Navigator.prototype,'gpu',{get:()=>gpu,configurable:true,enumerable:false});
if(typeof WorkerNavigator!=='undefined'){
Object.defineProperty(WorkerNavigator.prototype,'gpu',{get:()=>gpu,configurable:true,enumerable:false});
}
Object.defineProperty(Navigator.prototype,'hardwareConcurrency',{get:()=>{{.GPU.HardwareConcurrency}},configurable:true});
})();`))

var canvasNoiseTemplate = template.Must(template.New("canvas").Parse(`(()=>{
const bound={{.Bound}};
const toBlob=HTMLCanvasElement.prototype.toBlob,toDataURL=HTMLCanvasElement.prototype.toDataURL,getImageData=CanvasRenderingContext2D.prototype.getImageData;
const noisify=(canvas,ctx)=>{
const delta={r:Math.floor(2*bound*Math.random())-bound,g:Math.floor(2*bound*Math.random())-bound,b:Math.floor(2*bound*Math.random())-bound,a:Math.floor(2*bound*Math.random())-bound};
const data=getImageData.apply(ctx,[0,0,canvas.width,canvas.height]);
for(let i=0;i<data.data.length;i+=4){data.data[i]+=delta.r;data.data[i+1]+=delta.g;data.data[i+2]+=delta.b;data.data[i+3]+=delta.a;}
ctx.putImageData(data,0,0);
};
Object.defineProperty(HTMLCanvasElement.prototype,'toBlob',{value:function(){noisify(this,this.getContext('2d'));return toBlob.apply(this,arguments);}});
Object.defineProperty(HTMLCanvasElement.prototype,'toDataURL',{value:function(){noisify(this,this.getContext('2d'));return toDataURL.apply(this,arguments);}});
Object.defineProperty(CanvasRenderingContext2D.prototype,'getImageData',{value:function(){noisify(this.canvas,this);return getImageData.apply(this,arguments);}});
})();`))

var userAgentDataTemplate = template.Must(template.New("uadata").Funcs(template.FuncMap{"platformFor": platformLiteral}).Parse(`(()=>{
const brands=[{brand:'Chromium',version:'124'},{brand:'Not-A.Brand',version:'99'}];
const data={
brands,
mobile:false,
platform:{{platformFor .OS}},
getHighEntropyValues:(hints)=>Promise.resolve(Object.assign({brands,mobile:false,platform:{{platformFor .OS}},uaFullVersion:'124.0.0.0',architecture:'x86',model:''},hints?{}:{})),
};
Object.defineProperty(Navigator.prototype,'userAgentData',{get:()=>data,configurable:true});
})();`))

// advancedTemplate layers the stricter removals and jitter a "strict"
// policy opts into on top of the always-on GPU/canvas/UA spoofing:
// navigator.webdriver, RTCPeerConnection, MediaStreamTrack are removed
// outright, audio-context buffers get the same per-OS noise bound as
// canvas, and element offset/rect reads get a small sign-varying jitter.
var advancedTemplate = template.Must(template.New("advanced").Parse(`(()=>{
Object.defineProperty(Navigator.prototype,'webdriver',{get:()=>undefined,configurable:true});
window.RTCPeerConnection=undefined;window.webkitRTCPeerConnection=undefined;window.MediaStreamTrack=undefined;
const bound={{.Bound}};
const noiseAudio=(ctor,method)=>{const orig=ctor.prototype[method];
Object.defineProperty(ctor.prototype,method,{value:function(){const out=orig.apply(this,arguments);
for(let i=0;i<out.length;i+=100){out[Math.floor(Math.random()*i)]+=(bound/1000)*Math.random();}
return out;}});};
noiseAudio(AudioBuffer,'getChannelData');
const rectJitter=()=>Math.floor(Math.random()+(Math.random()<Math.random()?-1:1)*Math.random());
Object.defineProperty(HTMLElement.prototype,'offsetHeight',{get:function(){const h=Math.floor(this.getBoundingClientRect().height);return h?h+rectJitter():h;}});
Object.defineProperty(HTMLElement.prototype,'offsetWidth',{get:function(){const w=Math.floor(this.getBoundingClientRect().width);return w?w+rectJitter():w;}});
})();`))

func platformLiteral(os OperatingSystem) string {
	switch os {
	case OSMac:
		return `"macOS"`
	case OSWindows:
		return `"Windows"`
	default:
		return `"Linux"`
	}
}
