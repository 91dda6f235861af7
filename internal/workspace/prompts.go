package workspace

// proposalPrompt asks the model to partition a repository into logical
// workspaces based on its README and tree listing.
const proposalPrompt = `You are an expert software architect. I will provide you with two pieces of information:
    1. The README file of a code repository.
    2. The file structure (tree view) of the entire project.

Your job is to analyze this project and break it down into logical workspaces - each workspace represents an isolated or semi-isolated part of the codebase that a developer or user might want to explore, modify, or interact with separately. Workspaces can represent frontend, backend, auth systems, dashboards, admin panels, APIs, database layers, etc., but I am not giving you any categories - you must decide yourself based on the README and file structure.

Use the file names, folder naming conventions, and README content to infer purpose.
You may make assumptions if the project lacks clarity, but clearly list them in an assumptions field for each workspace.

Each workspace should contain:

A name: A short title to be used as a button label.

A description: A 1-2 sentence summary for users to understand what this part does.

The list of files associated with this workspace. This list MUST ONLY contain file paths and NOT directory paths.

A returnPrompt: A single-sentence identifier that can be used to pass back what workspace the user clicked.

Any assumptions you made about this workspace's purpose or boundaries.

Limit the number of workspaces to a minimum of 2 and a maximum of 30. Prefer more, tightly focused workspaces over few sprawling ones; keeping fewer files per workspace makes later processing more efficient. Aim for under 12 files per workspace where possible.
Output must be a strict JSON array with no extra explanation outside the JSON.
Each object in the array must follow this structure:

{
  "name": "string",
  "description": "string",
  "fileStructure": ["path/file1", "folder/file2", ...],
  "returnPrompt": "string",
  "assumptions": "string"
}
Only return valid JSON. No markdown, no prose, no commentary - just the array.`
