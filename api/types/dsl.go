/*
 * Copyright 2024 The AspectGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package types

// WeavePlan is the declarative form of a registry population: which aspect
// components to instantiate, how to configure them, and which pointcut and
// priority to bind them under. Plans are plain JSON documents, loadable at
// startup or pushed at runtime through the mqtt control endpoint.
//
// Example:
//
//	{
//	  "plan": {"id": "demo", "name": "demo plan"},
//	  "aspects": [
//	    {
//	      "type": "log",
//	      "name": "entryLog",
//	      "order": 10,
//	      "pointcut": "execution(pub fn *(..))",
//	      "configuration": {"level": "info"}
//	    }
//	  ]
//	}
type WeavePlan struct {
	// Plan holds the document metadata.
	Plan PlanInfo `json:"plan"`
	// Aspects lists the bindings to create, in document order.
	Aspects []AspectDef `json:"aspects"`
}

// PlanInfo is the metadata block of a weave plan.
type PlanInfo struct {
	// ID identifies the plan, e.g. for replace-on-reload semantics.
	ID string `json:"id"`
	// Name is a human-readable title.
	Name string `json:"name,omitempty"`
	// Description documents what the plan weaves.
	Description string `json:"description,omitempty"`
	// AdditionalInfo carries extension fields untouched by the engine.
	AdditionalInfo map[string]interface{} `json:"additionalInfo,omitempty"`
}

// AspectDef declares one aspect binding inside a weave plan.
type AspectDef struct {
	// Type selects the aspect component in the component registry.
	Type string `json:"type"`
	// Name is the optional display name of the binding.
	Name string `json:"name,omitempty"`
	// Order is the priority: lower runs as the outer layer.
	Order int `json:"order"`
	// Pointcut is the pointcut expression string selecting functions.
	Pointcut string `json:"pointcut"`
	// Configuration holds the component settings, decoded by the
	// component's Init.
	Configuration Configuration `json:"configuration,omitempty"`
}
